// Package formsapi implements survey.QuestionSource and survey.SubmissionSink
// against the remote form service over HTTP: GET the ordered question list
// for a form, POST the collected answers payload. Every call is a single
// bounded request; network failures, non-2xx statuses, and malformed bodies
// all collapse into the survey error taxonomy (ErrSourceUnavailable,
// ErrSubmissionFailed). Config can be populated from the environment via
// NewFromEnv.
package formsapi
