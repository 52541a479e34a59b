// Package rsvp validates and records attendance decisions and renders localized confirmations.
package rsvp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/nikah/internal/metrics"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/internal/search"
	"github.com/hyperjump/nikah/pkg/apperrors"
	"github.com/hyperjump/nikah/pkg/utils"
)

// ResponseWriter persists responses. All responses of one call must be written or none.
type ResponseWriter interface {
	UpsertResponses(ctx context.Context, responses []*models.Response) error
}

// Handler processes RSVP submissions.
type Handler struct {
	provider search.DirectoryProvider
	store    ResponseWriter
	messages Messages
	locks    rowLocks
	newID    func() string
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithMessages replaces the confirmation texts.
func WithMessages(m Messages) Option {
	return func(h *Handler) { h.messages = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) { h.logger = utils.OrNop(logger) }
}

// WithMetrics records submission outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithIDGenerator replaces the submission ID generator, for tests.
func WithIDGenerator(fn func() string) Option {
	return func(h *Handler) { h.newID = fn }
}

// NewHandler creates a handler that validates against provider and writes to store.
func NewHandler(provider search.DirectoryProvider, store ResponseWriter, opts ...Option) *Handler {
	h := &Handler{
		provider: provider,
		store:    store,
		messages: DefaultMessages,
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Submit records the attendance decision for every selected guest.
//
// Every row index must exist in the current directory; otherwise nothing is written and the
// error is VALIDATION_FAILED. Write failures are STORAGE_FAILED and may be retried.
// Resubmitting a row overwrites its previous decision.
func (h *Handler) Submit(ctx context.Context, sub *models.Submission) (*models.Confirmation, error) {
	rows, lang, err := validate(sub)
	if err != nil {
		h.metrics.ObserveSubmission("validation_failed", false, 0)
		return nil, err
	}
	attending := *sub.Attending

	dir, err := h.provider.Directory(ctx)
	if err != nil {
		h.metrics.ObserveSubmission("source_unavailable", attending, 0)
		if apperrors.KindOf(err) == apperrors.KindInternal {
			err = apperrors.NewSourceUnavailable("guest list is unavailable", err)
		}
		return nil, err
	}

	var unknown []string
	guests := make([]models.Guest, 0, len(rows))
	for _, row := range rows {
		g, ok := dir.Guest(row)
		if !ok {
			unknown = append(unknown, strconv.Itoa(row))
			continue
		}
		guests = append(guests, g)
	}
	if len(unknown) > 0 {
		h.metrics.ObserveSubmission("validation_failed", attending, 0)
		return nil, apperrors.NewValidation("unknown guest rows: " + strings.Join(unknown, ", "))
	}

	submissionID := h.newID()
	responses := make([]*models.Response, len(guests))
	for i, g := range guests {
		responses[i] = &models.Response{
			RowIndex:     g.RowIndex,
			EnglishName:  g.EnglishName,
			ArabicName:   g.ArabicName,
			FamilyGroup:  g.FamilyGroup,
			TableNumber:  g.TableNumber,
			Attending:    attending,
			Language:     lang,
			SubmissionID: submissionID,
		}
	}

	unlock := h.locks.lock(rows)
	err = h.store.UpsertResponses(ctx, responses)
	unlock()
	if err != nil {
		h.metrics.ObserveSubmission("storage_failed", attending, 0)
		h.logger.Error("Failed to save RSVP", zap.Ints("rows", rows), zap.Error(err))
		if !apperrors.Is(err, apperrors.KindStorage) {
			err = apperrors.NewStorage("could not save your response, please try again", err)
		}
		return nil, err
	}

	h.metrics.ObserveSubmission("ok", attending, len(rows))
	h.logger.Info("RSVP recorded",
		zap.String("submission_id", submissionID),
		zap.Ints("rows", rows),
		zap.Bool("attending", attending),
		zap.String("language", string(lang)),
	)

	conf := &models.Confirmation{
		Success:      true,
		Message:      h.messages.ThankYou(lang, attending),
		SubmissionID: submissionID,
	}
	if first := guests[0]; attending && first.TableNumber != "" {
		table := first.TableNumber
		conf.TableNumber = &table
	}
	return conf, nil
}

// validate checks the request shape and returns the selected rows deduplicated in request order.
func validate(sub *models.Submission) ([]int, models.Language, error) {
	if sub == nil {
		return nil, "", apperrors.NewValidation("empty submission")
	}
	if sub.Attending == nil {
		return nil, "", apperrors.NewValidation("attendance decision is required")
	}
	if len(sub.SelectedRowIndexes) == 0 {
		return nil, "", apperrors.NewValidation("select at least one guest")
	}
	lang := sub.ClientLanguage
	if lang == "" {
		lang = models.LanguageEnglish
	}
	if !lang.Valid() {
		return nil, "", apperrors.NewValidation(fmt.Sprintf("unsupported language %q", sub.ClientLanguage))
	}

	seen := make(map[int]bool, len(sub.SelectedRowIndexes))
	rows := make([]int, 0, len(sub.SelectedRowIndexes))
	for _, r := range sub.SelectedRowIndexes {
		if seen[r] {
			continue
		}
		seen[r] = true
		rows = append(rows, r)
	}
	return rows, lang, nil
}
