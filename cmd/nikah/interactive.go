package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/nikah/internal/cli"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/internal/rsvp"
	"github.com/hyperjump/nikah/pkg/apperrors"
)

// searcher runs a guest search, either in-process or through the API.
type searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResult, error)
}

type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// ask prints question and returns the trimmed answer; ok is false at end of input.
func (p *prompter) ask(question string) (answer string, ok bool) {
	fmt.Fprint(p.out, question)
	if !p.scanner.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// runSession drives one RSVP session over a line-oriented terminal.
func runSession(ctx context.Context, in io.Reader, out io.Writer, s searcher, sub rsvp.Submitter, lang models.Language, clientID string) error {
	p := &prompter{scanner: bufio.NewScanner(in), out: out}
	session := rsvp.NewSession(lang)

	for {
		text, ok := p.ask("\nSearch for your name (blank to quit): ")
		if !ok || text == "" {
			return nil
		}
		result, err := s.Search(ctx, &models.SearchQuery{Text: text, ClientID: clientID})
		if err != nil {
			fmt.Fprintf(out, "Search failed: %s\n", apperrors.Message(err))
			if apperrors.Is(err, apperrors.KindRateLimited) {
				return err
			}
			continue
		}
		_ = cli.WriteSearchResults(out, result, cli.OutputText)
		if err := session.ApplySearch(result); err != nil {
			return err
		}
		if len(result.Guests) == 0 {
			continue
		}

		answer, ok := p.ask("Select guests (numbers, 'all', 'family N', or blank to search again): ")
		if !ok {
			return nil
		}
		if answer == "" {
			continue
		}
		if err := applySelection(session, answer, result); err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		attending, ok := askAttendance(p)
		if !ok {
			return nil
		}
		if err := session.ChooseAttendance(attending); err != nil {
			return err
		}

		for {
			conf, err := session.Submit(ctx, sub)
			if err == nil {
				return cli.WriteConfirmation(out, conf, cli.OutputText)
			}
			fmt.Fprintf(out, "Could not submit: %s\n", apperrors.Message(err))
			if !apperrors.Retryable(err) {
				return err
			}
			if again, ok := p.ask("Try again? [y/n]: "); !ok || !isYes(again) {
				return err
			}
		}
	}
}

func askAttendance(p *prompter) (attending bool, ok bool) {
	for {
		answer, ok := p.ask("Will you attend? [y/n]: ")
		if !ok {
			return false, false
		}
		switch {
		case isYes(answer):
			return true, true
		case isNo(answer):
			return false, true
		}
	}
}

func isYes(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "نعم":
		return true
	}
	return false
}

func isNo(s string) bool {
	switch strings.ToLower(s) {
	case "n", "no", "لا":
		return true
	}
	return false
}

// applySelection selects the guests named by answer. "family N" selects the family of guest N.
func applySelection(session *rsvp.Session, answer string, result *models.SearchResult) error {
	if rest, ok := cutPrefixFold(answer, "family "); ok {
		rows, err := parseSelection(rest, result)
		if err != nil {
			return err
		}
		for _, row := range rows {
			g := guestByRow(result, row)
			if g.FamilyGroup == "" {
				if err := session.Select(row); err != nil {
					return err
				}
				continue
			}
			if err := session.SelectFamily(g.FamilyGroup); err != nil {
				return err
			}
		}
		return nil
	}
	rows, err := parseSelection(answer, result)
	if err != nil {
		return err
	}
	return session.Select(rows...)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func guestByRow(result *models.SearchResult, row int) models.Guest {
	for _, g := range result.Guests {
		if g.RowIndex == row {
			return g
		}
	}
	return models.Guest{}
}

// parseSelection maps 1-based result positions (or "all") to row indexes.
func parseSelection(input string, result *models.SearchResult) ([]int, error) {
	if strings.EqualFold(strings.TrimSpace(input), "all") {
		return result.RowIndexes(), nil
	}
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("no guests selected")
	}
	rows := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(result.Guests) {
			return nil, fmt.Errorf("invalid choice %q: pick numbers between 1 and %d", f, len(result.Guests))
		}
		rows = append(rows, result.Guests[n-1].RowIndex)
	}
	return rows, nil
}
