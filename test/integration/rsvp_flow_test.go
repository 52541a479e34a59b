// Package integration runs the HTTP API against real storage, a file source and the file watcher.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/guestlist"
	"github.com/hyperjump/nikah/internal/metrics"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/internal/ratelimit"
	"github.com/hyperjump/nikah/internal/rsvp"
	"github.com/hyperjump/nikah/internal/search"
	"github.com/hyperjump/nikah/internal/server"
	"github.com/hyperjump/nikah/internal/storage"
	"github.com/hyperjump/nikah/internal/watcher"
)

const guestsV1 = "English Name,Family Group,Arabic Name,Table\n" +
	"Sarah Abdelrahman,Sarah And Hossni's Family,سارة عبد الرحمان,5\n" +
	"Hossni,Sarah And Hossni's Family,حسني,5\n" +
	"Omar Khaled,,عمر خالد,\n"

const guestsV2 = guestsV1 +
	"Layla Hassan,Hassan Family,ليلى حسن,8\n" +
	"Karim Hassan,Hassan Family,كريم حسن,8\n"

type stack struct {
	url     string
	csvPath string
	store   *storage.SQLiteStorage
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "guests.csv")
	if err := os.WriteFile(csvPath, []byte(guestsV1), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "rsvp.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	srcCfg := &config.SourceConfig{Path: csvPath, RefreshInterval: time.Hour, FamilyMatching: "normalized"}
	source, err := guestlist.NewSource(srcCfg)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	loader := guestlist.NewLoader(source, srcCfg, guestlist.WithRefreshHook(m.ObserveRefresh))
	limiter := ratelimit.New(store, ratelimit.DefaultPolicy, ratelimit.WithMetrics(m))
	engine := search.NewEngine(loader, search.WithLimiter(limiter), search.WithMetrics(m))
	handler := rsvp.NewHandler(loader, store, rsvp.WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w, err := watcher.NewWatcher([]string{csvPath}, func(string) {
		_, _ = loader.Refresh(ctx)
	}, watcher.WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)

	cfg := &config.ServerConfig{ClientIDHeader: "X-Client-ID", RequestTimeout: 5 * time.Second}
	srv := server.NewServer(engine, handler, loader, store, cfg, nil,
		server.WithLimiter(limiter), server.WithMetrics(m))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &stack{url: ts.URL, csvPath: csvPath, store: store}
}

func (s *stack) post(t *testing.T, path, clientID string, body interface{}, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, s.url+path, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", clientID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func (s *stack) search(t *testing.T, clientID, text string) (*models.SearchResult, int) {
	t.Helper()
	var res models.SearchResult
	code := s.post(t, "/api/v1/search", clientID, map[string]string{"searchQuery": text}, &res)
	return &res, code
}

func TestIntegration_SearchAndSubmit(t *testing.T) {
	s := newStack(t)

	res, code := s.search(t, "phone-1", "حسني")
	if code != http.StatusOK {
		t.Fatalf("search: got %d", code)
	}
	if res.SearchLanguage != models.LanguageArabic || len(res.Guests) != 2 {
		t.Fatalf("result: got %+v", res)
	}

	attending := true
	var conf models.Confirmation
	code = s.post(t, "/api/v1/rsvp", "phone-1", models.Submission{
		SelectedRowIndexes: res.RowIndexes(),
		Attending:          &attending,
		ClientLanguage:     models.LanguageArabic,
	}, &conf)
	if code != http.StatusOK || !conf.Success {
		t.Fatalf("submit: got %d %+v", code, conf)
	}
	if conf.TableNumber == nil || *conf.TableNumber != "5" {
		t.Errorf("table: got %v", conf.TableNumber)
	}

	resp, err := s.store.GetResponse(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Attending || resp.SubmissionID != conf.SubmissionID {
		t.Errorf("stored: got %+v", resp)
	}
}

func TestIntegration_QuotaPersistsInSQLite(t *testing.T) {
	s := newStack(t)
	for i := 0; i < ratelimit.DefaultPolicy.MaxSearches; i++ {
		if _, code := s.search(t, "phone-2", "omar"); code != http.StatusOK {
			t.Fatalf("search %d: got %d", i, code)
		}
	}
	if _, code := s.search(t, "phone-2", "omar"); code != http.StatusTooManyRequests {
		t.Fatalf("6th search: got %d, want 429", code)
	}
	w, found, err := s.store.GetQuota(context.Background(), "phone-2")
	if err != nil || !found {
		t.Fatalf("GetQuota: %v found=%v", err, found)
	}
	if w.Count != ratelimit.DefaultPolicy.MaxSearches {
		t.Errorf("stored count: got %d", w.Count)
	}
}

func TestIntegration_WatcherRefreshesDirectory(t *testing.T) {
	s := newStack(t)
	if res, _ := s.search(t, "phone-3", "hassan"); len(res.Guests) != 0 {
		t.Fatalf("before update: got %d guests", len(res.Guests))
	}

	if err := os.WriteFile(s.csvPath, []byte(guestsV2), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res, code := s.search(t, "phone-"+time.Now().Format("150405.000000"), "hassan")
		if code == http.StatusOK && len(res.Guests) == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("directory was not refreshed after the guest list changed")
}
