package rsvp

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/nikah/internal/models"
)

// State is a step of an RSVP session.
type State int

const (
	StateIdle State = iota
	StateSearched
	StateSelected
	StateAttendanceChosen
	StateSubmitted
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearched:
		return "searched"
	case StateSelected:
		return "selected"
	case StateAttendanceChosen:
		return "attendance_chosen"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotInResult is returned when selecting a guest the last search did not return.
	ErrNotInResult = errors.New("guest is not in the search result")
)

// Submitter sends a submission, typically *Handler or an HTTP client.
type Submitter interface {
	Submit(ctx context.Context, sub *models.Submission) (*models.Confirmation, error)
}

// Session walks one guest through search, selection, attendance and submission.
// A Session is not safe for concurrent use.
type Session struct {
	state        State
	language     models.Language
	result       *models.SearchResult
	selected     []int
	attending    *bool
	confirmation *models.Confirmation
}

// NewSession creates an idle session whose confirmation will be rendered in lang.
func NewSession(lang models.Language) *Session {
	if !lang.Valid() {
		lang = models.LanguageEnglish
	}
	return &Session{state: StateIdle, language: lang}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Result returns the last applied search result.
func (s *Session) Result() *models.SearchResult { return s.result }

// Confirmation returns the confirmation once the session is confirmed.
func (s *Session) Confirmation() *models.Confirmation { return s.confirmation }

// Selected returns the selected row indexes in selection order.
func (s *Session) Selected() []int {
	out := make([]int, len(s.selected))
	copy(out, s.selected)
	return out
}

// CanSubmit reports whether Submit is allowed.
func (s *Session) CanSubmit() bool {
	return s.state == StateAttendanceChosen
}

// ApplySearch starts over with a new result. An empty result leaves the session idle.
func (s *Session) ApplySearch(result *models.SearchResult) error {
	if s.state == StateSubmitted {
		return fmt.Errorf("%w: submission in progress", ErrInvalidTransition)
	}
	s.result = result
	s.selected = nil
	s.attending = nil
	s.confirmation = nil
	if result == nil || len(result.Guests) == 0 {
		s.state = StateIdle
		return nil
	}
	s.state = StateSearched
	return nil
}

// Select adds rows from the current result to the selection.
func (s *Session) Select(rows ...int) error {
	if !s.selecting() {
		return fmt.Errorf("%w: cannot select in state %s", ErrInvalidTransition, s.state)
	}
	for _, row := range rows {
		if !s.inResult(row) {
			return fmt.Errorf("%w: row %d", ErrNotInResult, row)
		}
	}
	for _, row := range rows {
		if !s.isSelected(row) {
			s.selected = append(s.selected, row)
		}
	}
	if len(s.selected) > 0 && s.state == StateSearched {
		s.state = StateSelected
	}
	return nil
}

// SelectFamily selects every guest of group in the current result.
func (s *Session) SelectFamily(group string) error {
	if !s.selecting() {
		return fmt.Errorf("%w: cannot select in state %s", ErrInvalidTransition, s.state)
	}
	var rows []int
	for _, g := range s.result.Guests {
		if group != "" && g.FamilyGroup == group {
			rows = append(rows, g.RowIndex)
		}
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: family %q", ErrNotInResult, group)
	}
	return s.Select(rows...)
}

// Deselect removes row from the selection. Removing the last row returns to Searched and
// clears the attendance decision.
func (s *Session) Deselect(row int) error {
	if s.state != StateSelected && s.state != StateAttendanceChosen {
		return fmt.Errorf("%w: cannot deselect in state %s", ErrInvalidTransition, s.state)
	}
	for i, r := range s.selected {
		if r == row {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			break
		}
	}
	if len(s.selected) == 0 {
		s.state = StateSearched
		s.attending = nil
	}
	return nil
}

// ChooseAttendance records the attendance decision.
func (s *Session) ChooseAttendance(attending bool) error {
	if s.state != StateSelected && s.state != StateAttendanceChosen {
		return fmt.Errorf("%w: choose guests before attendance", ErrInvalidTransition)
	}
	s.attending = &attending
	s.state = StateAttendanceChosen
	return nil
}

// Submit sends the selection through submitter. On failure the session stays in
// AttendanceChosen so the submission can be retried.
func (s *Session) Submit(ctx context.Context, submitter Submitter) (*models.Confirmation, error) {
	if s.state != StateAttendanceChosen {
		return nil, fmt.Errorf("%w: cannot submit in state %s", ErrInvalidTransition, s.state)
	}
	attending := *s.attending
	sub := &models.Submission{
		SelectedRowIndexes: s.Selected(),
		Attending:          &attending,
		ClientLanguage:     s.language,
	}
	s.state = StateSubmitted
	conf, err := submitter.Submit(ctx, sub)
	if err != nil {
		s.state = StateAttendanceChosen
		return nil, err
	}
	s.confirmation = conf
	s.state = StateConfirmed
	return conf, nil
}

func (s *Session) selecting() bool {
	switch s.state {
	case StateSearched, StateSelected, StateAttendanceChosen:
		return true
	}
	return false
}

func (s *Session) inResult(row int) bool {
	if s.result == nil {
		return false
	}
	for _, g := range s.result.Guests {
		if g.RowIndex == row {
			return true
		}
	}
	return false
}

func (s *Session) isSelected(row int) bool {
	for _, r := range s.selected {
		if r == row {
			return true
		}
	}
	return false
}
