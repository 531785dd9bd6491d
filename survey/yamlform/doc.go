// Package yamlform implements survey.QuestionSource over a local YAML file,
// for development and fixtures when the remote form service is unreachable or
// undesirable. The file maps form IDs to question lists; a missing form or a
// malformed file surfaces as survey.ErrSourceUnavailable just like a remote
// failure would.
package yamlform
