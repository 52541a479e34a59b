package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/pkg/apperrors"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"sarah", "-output", "json"},
			expected: []string{"-output", "json", "sarah"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "sarah"},
			expected: []string{"-output", "json", "sarah"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"sarah abdelrahman"},
			expected: []string{"sarah abdelrahman"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"سارة", "عبد", "-server", ""},
			expected: []string{"-server", "", "سارة", "عبد"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"hossni"}, "hossni"},
		{"multiple words", []string{"sarah", "abdelrahman"}, "sarah abdelrahman"},
		{"arabic words", []string{"سارة", "عبد"}, "سارة عبد"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
source:
  path: "./guests.csv"
storage:
  database_path: "./rsvp.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
source:
  url: "https://example.com/guests.csv"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

const guestsCSV = "English Name,Family Group,Arabic Name,Table\n" +
	"Sarah Abdelrahman,Sarah And Hossni's Family,سارة عبد الرحمان,5\n" +
	"Hossni,Sarah And Hossni's Family,حسني,5\n" +
	"Omar Khaled,,عمر خالد,\n"

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "guests.csv"), []byte(guestsCSV), 0600); err != nil {
		t.Fatal(err)
	}
	content := `
source:
  path: "./guests.csv"
storage:
  database_path: "./rsvp.db"
` + extra
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func TestInitializeComponents(t *testing.T) {
	ctx := context.Background()
	cfg, _, err := loadConfig(writeTestConfig(t, "rate_limit:\n  backend: memory\n  max_searches: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Limiter == nil || c.memoryQuota == nil {
		t.Fatal("memory quota backend not wired")
	}

	res, err := c.Engine.Search(ctx, &models.SearchQuery{Text: "hossni", ClientID: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Guests) != 2 || res.RemainingSearches == nil || *res.RemainingSearches != 1 {
		t.Errorf("search: got %+v", res)
	}

	attending := true
	conf, err := c.RSVP.Submit(ctx, &models.Submission{SelectedRowIndexes: []int{2}, Attending: &attending})
	if err != nil {
		t.Fatal(err)
	}
	if conf.TableNumber != nil {
		t.Errorf("table: got %v, want nil", *conf.TableNumber)
	}

	st := localStatus(ctx, c)
	if st.Directory.Guests != 3 || st.Responses.Total != 1 || st.RateLimit.MaxSearches != 2 {
		t.Errorf("status: got %+v", st)
	}
}

func TestComponents_ReloadGuestList(t *testing.T) {
	ctx := context.Background()
	configPath := writeTestConfig(t, "rate_limit:\n  enabled: false\n")
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Loader.Directory(ctx); err != nil {
		t.Fatal(err)
	}

	csvPath := filepath.Join(filepath.Dir(configPath), "guests.csv")
	if err := os.WriteFile(csvPath, []byte(guestsCSV+"Laila Hassan,,ليلى حسن,7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	c.ReloadGuestList(ctx, csvPath)
	if n := c.Loader.Status().Guests; n != 4 {
		t.Errorf("guests after reload = %d, want 4", n)
	}

	if err := os.Remove(csvPath); err != nil {
		t.Fatal(err)
	}
	c.ReloadGuestList(ctx, csvPath)
	if _, err := c.Loader.Directory(ctx); err == nil {
		t.Error("a removed guest list must not keep serving the previous snapshot")
	}
}

func TestInitializeComponents_RateLimitDisabled(t *testing.T) {
	cfg, _, err := loadConfig(writeTestConfig(t, "rate_limit:\n  enabled: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Limiter != nil {
		t.Error("limiter should be nil when rate limiting is disabled")
	}
}

func TestInitializeComponents_InvalidConfig(t *testing.T) {
	cfg, _, err := loadConfig(writeTestConfig(t, "rate_limit:\n  backend: memcached\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := initializeComponents(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown rate limit backend")
	}
}

var sarahResult = &models.SearchResult{
	Guests: []models.Guest{
		{RowIndex: 0, EnglishName: "Sarah Abdelrahman", ArabicName: "سارة عبد الرحمان", FamilyGroup: "Sarah And Hossni's Family", TableNumber: "5"},
		{RowIndex: 1, EnglishName: "Hossni", ArabicName: "حسني", FamilyGroup: "Sarah And Hossni's Family", TableNumber: "5"},
	},
	SearchLanguage: models.LanguageEnglish,
}

type fakeSearcher struct {
	result *models.SearchResult
	err    error
}

func (f *fakeSearcher) Search(context.Context, *models.SearchQuery) (*models.SearchResult, error) {
	return f.result, f.err
}

type fakeSubmitter struct {
	errs []error
	subs []*models.Submission
}

func (f *fakeSubmitter) Submit(_ context.Context, sub *models.Submission) (*models.Confirmation, error) {
	f.subs = append(f.subs, sub)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &models.Confirmation{Success: true, Message: "Thank you"}, nil
}

func TestRunSession(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRows  []int
		attending bool
	}{
		{"single guest", "sarah\n1\ny\n", []int{0}, true},
		{"all guests", "sarah\nall\nno\n", []int{0, 1}, false},
		{"family of guest", "sarah\nfamily 2\nY\n", []int{0, 1}, true},
		{"invalid choice then valid", "sarah\n9\nsarah\n2\nmaybe\nn\n", []int{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			var out bytes.Buffer
			err := runSession(context.Background(), strings.NewReader(tt.input), &out,
				&fakeSearcher{result: sarahResult}, sub, models.LanguageEnglish, "t")
			if err != nil {
				t.Fatalf("runSession: %v\n%s", err, out.String())
			}
			if len(sub.subs) != 1 {
				t.Fatalf("submissions: got %d", len(sub.subs))
			}
			got := sub.subs[0]
			if !reflect.DeepEqual(got.SelectedRowIndexes, tt.wantRows) || *got.Attending != tt.attending {
				t.Errorf("submission: got rows %v attending %v", got.SelectedRowIndexes, *got.Attending)
			}
			if !strings.Contains(out.String(), "Thank you") {
				t.Errorf("confirmation not printed:\n%s", out.String())
			}
		})
	}
}

func TestRunSession_RetriesStorageFailure(t *testing.T) {
	sub := &fakeSubmitter{errs: []error{apperrors.NewStorage("could not save your response, please try again", errors.New("locked"))}}
	var out bytes.Buffer
	err := runSession(context.Background(), strings.NewReader("sarah\n1\ny\ny\n"), &out,
		&fakeSearcher{result: sarahResult}, sub, models.LanguageEnglish, "t")
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.subs) != 2 {
		t.Errorf("submissions: got %d, want 2", len(sub.subs))
	}
	if !strings.Contains(out.String(), "Could not submit: could not save your response") {
		t.Errorf("failure not reported:\n%s", out.String())
	}
}

func TestRunSession_RateLimited(t *testing.T) {
	var out bytes.Buffer
	err := runSession(context.Background(), strings.NewReader("sarah\n"), &out,
		&fakeSearcher{err: apperrors.NewRateLimited("daily search limit reached")}, &fakeSubmitter{}, models.LanguageEnglish, "t")
	if !apperrors.Is(err, apperrors.KindRateLimited) {
		t.Fatalf("err: got %v", err)
	}
}

func TestRunSession_EndOfInput(t *testing.T) {
	sub := &fakeSubmitter{}
	err := runSession(context.Background(), strings.NewReader("sarah\n1\n"), &bytes.Buffer{},
		&fakeSearcher{result: sarahResult}, sub, models.LanguageEnglish, "t")
	if err != nil || len(sub.subs) != 0 {
		t.Errorf("got err %v, %d submissions", err, len(sub.subs))
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{"1", []int{0}, false},
		{"2,1", []int{1, 0}, false},
		{"ALL", []int{0, 1}, false},
		{"3", nil, true},
		{"0", nil, true},
		{"x", nil, true},
		{" , ", nil, true},
	}
	for _, tt := range tests {
		got, err := parseSelection(tt.input, sarahResult)
		if (err != nil) != tt.wantErr || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseSelection(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestAPIClient_ErrorKinds(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Client-ID") != "cli" {
			t.Errorf("X-Client-ID: got %q", r.Header.Get("X-Client-ID"))
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/search":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"daily search limit reached","code":"RATE_LIMITED","remainingSearches":0}`))
		case "/api/v1/rsvp":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"could not save","code":"STORAGE_FAILED","retryable":true}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer ts.Close()

	c := newAPIClient(ts.URL+"/", "cli")
	ctx := context.Background()
	if _, err := c.Search(ctx, &models.SearchQuery{Text: "sarah"}); !apperrors.Is(err, apperrors.KindRateLimited) {
		t.Errorf("search: got %v", err)
	}
	attending := true
	_, err := c.Submit(ctx, &models.Submission{SelectedRowIndexes: []int{0}, Attending: &attending})
	if !apperrors.Retryable(err) || apperrors.Message(err) != "could not save" {
		t.Errorf("submit: got %v", err)
	}
	if _, err := c.Status(ctx, false); err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("status: got %v", err)
	}
}
