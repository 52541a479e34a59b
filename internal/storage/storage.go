// Package storage defines the persistence interface for RSVP responses and search quotas.
package storage

import (
	"context"

	"github.com/hyperjump/nikah/internal/models"
)

// Storage defines response and quota persistence operations.
type Storage interface {
	// Response operations
	UpsertResponses(ctx context.Context, responses []*models.Response) error
	GetResponse(ctx context.Context, rowIndex int) (*models.Response, error)
	ListResponses(ctx context.Context, offset, limit int) ([]*models.Response, error)
	SummarizeResponses(ctx context.Context) (*models.ResponseSummary, error)

	// Quota operations
	UpdateQuota(ctx context.Context, clientID string, fn func(w models.QuotaWindow, found bool) models.QuotaWindow) (models.QuotaWindow, error)
	GetQuota(ctx context.Context, clientID string) (models.QuotaWindow, bool, error)

	Close() error
}
