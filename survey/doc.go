// Package survey defines the questionnaire data model shared by the engine,
// the resolver, and the gateway implementations: questions with a typed kind,
// the immutable question set loaded at session start, and the submission
// payload delivered to the form service on completion.
//
// Layers & Roles
//
//	QuestionSource -> remote (or file-backed) provider of the ordered question list
//	SubmissionSink -> remote acceptor of the final answers payload
//	QuestionSet    -> immutable-once-loaded list a session walks through
//
// Implementations
//
//	formsapi : HTTP client against the remote form service
//	yamlform : YAML file source for local development and fixtures
//
// A question's Kind drives both how the engine renders the prompt (enumerated
// options, date format hint, free-form) and which validation and matching
// rules the resolver applies. Option order is stable for the lifetime of a
// session: the same option always maps to the same 1-based number.
package survey
