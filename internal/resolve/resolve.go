// Package resolve classifies an inbound utterance — typed text or a speech
// transcript — against the current question: navigation command, option
// selection, speech candidate needing confirmation, validated free-form
// answer, or rejection. Classification is pure; the engine applies the
// resulting transition.
package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/voicesurvey/anketabot-go/survey"
)

// Kind tags the outcome of classifying one utterance.
type Kind int

const (
	// KindNavigation is a repeat/previous/skip command.
	KindNavigation Kind = iota
	// KindSelected is a definite option choice (numeric or exact match).
	KindSelected
	// KindConfirm is a speech-only partial match awaiting explicit
	// confirmation; nothing is recorded yet.
	KindConfirm
	// KindFreeform is a validated free-text answer.
	KindFreeform
	// KindRejected means the utterance satisfied nothing; the session stays
	// awaiting and the question is re-prompted with guidance.
	KindRejected
)

// Nav is a navigation command.
type Nav int

const (
	NavRepeat Nav = iota
	NavPrevious
	NavSkip
)

// Reason explains a rejection.
type Reason string

const (
	// ReasonNoMatch: no option matched; the option list is re-displayed.
	ReasonNoMatch Reason = "no_match"
	// ReasonBadDate: the value does not match DD.MM.YYYY.
	ReasonBadDate Reason = "bad_date_format"
	// ReasonBadPhone: a phone answer starts with neither «+7» nor «8».
	ReasonBadPhone Reason = "bad_phone_format"
	// ReasonEmpty: the utterance was blank after trimming.
	ReasonEmpty Reason = "empty"
)

// Result is the tagged outcome of classification. Kind selects which of the
// remaining fields are meaningful.
type Result struct {
	Kind        Kind
	Nav         Nav    // KindNavigation
	OptionIndex int    // KindSelected, KindConfirm (0-based)
	Text        string // KindFreeform: trimmed answer, original case
	Reason      Reason // KindRejected
}

// Spoken navigation command sets. «0» is the spoken shortcut for repeat.
var (
	repeatWords   = []string{"0", "повторить", "повторить вопрос"}
	previousWords = []string{"назад", "предыдущий вопрос"}
	skipWords     = []string{"пропустить", "пропустить вопрос"}
)

// datePattern is a literal shape check only; calendar validity is not
// enforced (31.02.9999 passes).
var datePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// Utterance classifies raw input against the current question. fromSpeech
// widens option matching: a transcript that partially matches exactly one
// option yields a confirmation candidate, while typed text never does — a
// typo should not silently guess the respondent's intent.
func Utterance(q survey.Question, raw string, fromSpeech bool) Result {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case matchesAny(normalized, repeatWords):
		return Result{Kind: KindNavigation, Nav: NavRepeat}
	case matchesAny(normalized, previousWords):
		return Result{Kind: KindNavigation, Nav: NavPrevious}
	case matchesAny(normalized, skipWords):
		return Result{Kind: KindNavigation, Nav: NavSkip}
	}

	if q.HasOptions() {
		return matchOption(q, normalized, fromSpeech)
	}

	return validateFreeform(q, strings.TrimSpace(raw))
}

func matchesAny(s string, words []string) bool {
	for _, w := range words {
		if s == w {
			return true
		}
	}
	return false
}

// matchOption resolves an utterance against a closed option list: 1-based
// number, then exact case-insensitive value, then (speech only) a substring
// match in either direction that singles out exactly one option.
func matchOption(q survey.Question, normalized string, fromSpeech bool) Result {
	if normalized == "" {
		return Result{Kind: KindRejected, Reason: ReasonEmpty}
	}

	if n, err := strconv.Atoi(normalized); err == nil && n >= 1 && n <= len(q.Options) {
		return Result{Kind: KindSelected, OptionIndex: n - 1}
	}

	for i, opt := range q.Options {
		if strings.ToLower(opt) == normalized {
			return Result{Kind: KindSelected, OptionIndex: i}
		}
	}

	if fromSpeech {
		candidate := -1
		for i, opt := range q.Options {
			lower := strings.ToLower(opt)
			if strings.Contains(lower, normalized) || strings.Contains(normalized, lower) {
				if candidate >= 0 {
					// More than one partial match: select nothing.
					candidate = -1
					break
				}
				candidate = i
			}
		}
		if candidate >= 0 {
			return Result{Kind: KindConfirm, OptionIndex: candidate}
		}
	}

	return Result{Kind: KindRejected, Reason: ReasonNoMatch}
}

// validateFreeform applies the per-kind shape rules to a free-text candidate.
func validateFreeform(q survey.Question, trimmed string) Result {
	if trimmed == "" {
		return Result{Kind: KindRejected, Reason: ReasonEmpty}
	}
	switch {
	case q.Kind == survey.KindDate:
		if !datePattern.MatchString(trimmed) {
			return Result{Kind: KindRejected, Reason: ReasonBadDate}
		}
	case q.IsPhone():
		if !strings.HasPrefix(trimmed, "+7") && !strings.HasPrefix(trimmed, "8") {
			return Result{Kind: KindRejected, Reason: ReasonBadPhone}
		}
	}
	return Result{Kind: KindFreeform, Text: trimmed}
}
