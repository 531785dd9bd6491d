package survey

import (
	"context"
	"errors"
)

var (
	// ErrSourceUnavailable indicates the question list could not be fetched or
	// was malformed. No session is created; the respondent is told to retry
	// later.
	ErrSourceUnavailable = errors.New("survey: question source unavailable")

	// ErrSubmissionFailed indicates the answers payload could not be delivered.
	// The session is discarded; the respondent must restart the form.
	ErrSubmissionFailed = errors.New("survey: submission failed")
)

// SubmissionSource tags payloads produced by this bot.
const SubmissionSource = "conversational-bot"

// Answer is one collected answer. Answers are submitted in insertion order:
// a respondent who goes back and re-answers an earlier question has the new
// value appended at its original slot, but a question answered for the first
// time after back-navigation lands wherever it was actually answered.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// Submission is the payload delivered to the form service on completion.
type Submission struct {
	Source     string   `json:"source"`
	Respondent string   `json:"respondent_identifier"`
	Answers    []Answer `json:"answers"`
}

// QuestionSource provides the ordered question list for a form. Failures of
// any shape (network, HTTP status, malformed body) surface as
// ErrSourceUnavailable, possibly wrapped with detail.
type QuestionSource interface {
	Questions(ctx context.Context, formID string) (QuestionSet, error)
}

// SubmissionSink accepts the final answers payload. Failures surface as
// ErrSubmissionFailed, possibly wrapped with detail.
type SubmissionSink interface {
	Submit(ctx context.Context, formID string, sub Submission) error
}
