package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/pkg/apperrors"
)

// apiClient talks to a running nikah server.
type apiClient struct {
	baseURL  string
	clientID string
	http     *http.Client
}

func newAPIClient(baseURL, clientID string) *apiClient {
	return &apiClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is the error body returned by the API.
type apiError struct {
	Error string         `json:"error"`
	Code  apperrors.Kind `json:"code"`
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientID != "" {
		req.Header.Set("X-Client-ID", c.clientID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var e apiError
		if json.Unmarshal(b, &e) == nil && e.Code != "" {
			return &apperrors.AppError{Kind: e.Code, Message: e.Error}
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResult, error) {
	var res models.SearchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", query, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *apiClient) Submit(ctx context.Context, sub *models.Submission) (*models.Confirmation, error) {
	var conf models.Confirmation
	if err := c.do(ctx, http.MethodPost, "/api/v1/rsvp", sub, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *apiClient) Responses(ctx context.Context, offset, limit int) (*models.ResponseList, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var list models.ResponseList
	if err := c.do(ctx, http.MethodGet, "/api/v1/rsvp?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *apiClient) Status(ctx context.Context, refresh bool) (*models.Status, error) {
	var st models.Status
	method, path := http.MethodGet, "/api/v1/status"
	if refresh {
		method, path = http.MethodPost, "/api/v1/directory/refresh"
	}
	if err := c.do(ctx, method, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
