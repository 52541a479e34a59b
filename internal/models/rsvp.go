package models

import "time"

// Submission is an attendance decision for one or more guests.
// Attending is a pointer so a missing decision can be told apart from false.
type Submission struct {
	SelectedRowIndexes []int    `json:"selectedRowIndexes"`
	Attending          *bool    `json:"attending"`
	ClientLanguage     Language `json:"clientLanguage"`
}

// Confirmation is the localized reply to an accepted submission.
type Confirmation struct {
	Success      bool    `json:"success"`
	TableNumber  *string `json:"tableNumber"`
	Message      string  `json:"message"`
	SubmissionID string  `json:"submissionId,omitempty"`
}

// Response is the persisted attendance decision of one guest.
type Response struct {
	RowIndex     int       `json:"rowIndex"`
	EnglishName  string    `json:"englishName"`
	ArabicName   string    `json:"arabicName"`
	FamilyGroup  string    `json:"familyGroup"`
	TableNumber  string    `json:"tableNumber"`
	Attending    bool      `json:"attending"`
	Language     Language  `json:"language"`
	SubmissionID string    `json:"submissionId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ResponseSummary counts stored responses.
type ResponseSummary struct {
	Total     int64 `json:"total"`
	Attending int64 `json:"attending"`
	Declining int64 `json:"declining"`
}
