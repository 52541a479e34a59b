package guestlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hyperjump/nikah/internal/config"
)

// maxPayloadBytes is the default size limit of a remote guest list.
const maxPayloadBytes = 32 << 20

// Payload is the raw content of a guest list and its encoding.
type Payload struct {
	Data   []byte
	Format Format
}

// Source fetches the current guest list.
type Source interface {
	Fetch(ctx context.Context) (*Payload, error)
	String() string
}

// NewSource returns a FileSource or HTTPSource for cfg.
func NewSource(cfg *config.SourceConfig) (Source, error) {
	switch {
	case cfg.Path != "":
		return &FileSource{Path: cfg.Path, Format: Format(cfg.Format)}, nil
	case cfg.URL != "":
		return &HTTPSource{URL: cfg.URL, Format: Format(cfg.Format), Client: http.DefaultClient}, nil
	default:
		return nil, fmt.Errorf("no guest list source configured")
	}
}

// FileSource reads the guest list from a local CSV or XLSX file.
type FileSource struct {
	Path   string
	Format Format
}

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	format := s.Format
	if format == "" {
		format = FormatFromName(s.Path)
	}
	return &Payload{Data: data, Format: format}, nil
}

func (s *FileSource) String() string {
	return "file:" + s.Path
}

// HTTPSource downloads the guest list, typically a published spreadsheet export link.
type HTTPSource struct {
	URL    string
	Format Format
	Client *http.Client
	// MaxBytes rejects larger bodies; zero means maxPayloadBytes.
	MaxBytes int64
}

// Fetch performs a GET and returns the body. Non-2xx responses are errors.
func (s *HTTPSource) Fetch(ctx context.Context) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch guest list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch guest list: unexpected status %d", resp.StatusCode)
	}
	limit := s.MaxBytes
	if limit <= 0 {
		limit = maxPayloadBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read guest list body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("fetch guest list: body exceeds %d bytes", limit)
	}
	format := s.Format
	if format == "" {
		if f, ok := FormatFromContentType(resp.Header.Get("Content-Type")); ok {
			format = f
		} else {
			format = FormatFromName(req.URL.Path)
		}
	}
	return &Payload{Data: data, Format: format}, nil
}

func (s *HTTPSource) String() string {
	return "url:" + s.URL
}
