package survey

import (
	"fmt"
	"strings"
)

// Kind is the shape tag of a question. It selects the rendering strategy and
// the validation/matching rules applied to answers.
type Kind string

const (
	// KindSelect is a single choice from a closed option list.
	KindSelect Kind = "select"
	// KindCheckbox is rendered and matched like KindSelect; the form service
	// models it as a multi-choice field but the conversational flow records a
	// single picked option per pass.
	KindCheckbox Kind = "checkbox"
	// KindDate expects a DD.MM.YYYY value.
	KindDate Kind = "date"
	// KindTextarea is long free text.
	KindTextarea Kind = "textarea"
	// KindText is short free text, optionally constrained by the hint (a hint
	// mentioning «+7» marks a phone-number field).
	KindText Kind = "text"
)

// Question is a single questionnaire entry. Instances are immutable after the
// set is loaded; the engine and resolver only ever read them.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Text     string   `json:"text" yaml:"text"`
	Kind     Kind     `json:"type" yaml:"type"`
	Required bool     `json:"required" yaml:"required"`
	Hint     string   `json:"hint,omitempty" yaml:"hint,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasOptions reports whether answers should be matched against a closed
// option list.
func (q Question) HasOptions() bool {
	return (q.Kind == KindSelect || q.Kind == KindCheckbox) && len(q.Options) > 0
}

// PhoneHintMarker flags a text question as a phone-number field when it
// appears in the hint.
const PhoneHintMarker = "+7"

// IsPhone reports whether the question's hint marks it as a phone-number
// field.
func (q Question) IsPhone() bool {
	return q.Kind == KindText && strings.Contains(q.Hint, PhoneHintMarker)
}

// QuestionSet is the ordered question list for one form. It is loaded once at
// session start and never mutated afterwards.
type QuestionSet []Question

// Validate rejects sets the engine cannot safely walk: empty sets, questions
// without an ID or text, and choice questions without options. A source that
// returns such data is treated as unavailable.
func (qs QuestionSet) Validate() error {
	if len(qs) == 0 {
		return fmt.Errorf("question set is empty")
	}
	seen := make(map[string]struct{}, len(qs))
	for i, q := range qs {
		if q.ID == "" {
			return fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Text == "" {
			return fmt.Errorf("question %q: missing text", q.ID)
		}
		switch q.Kind {
		case KindSelect, KindCheckbox:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %q: kind %s requires options", q.ID, q.Kind)
			}
		case KindDate, KindTextarea, KindText:
		default:
			return fmt.Errorf("question %q: unknown kind %q", q.ID, q.Kind)
		}
	}
	return nil
}
