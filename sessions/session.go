package sessions

import (
	"fmt"

	"github.com/voicesurvey/anketabot-go/survey"
)

// Mode selects how prompts are rendered for a respondent. Text is always
// delivered; voice mode additionally synthesizes a spoken rendering.
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
)

// Pending is a speech answer that partially matched exactly one option and
// must be explicitly confirmed. It lives for a single turn: whatever the
// respondent says next supersedes it.
type Pending struct {
	// OptionIndex is the 0-based index of the candidate option.
	OptionIndex int
}

// Session is the mutable state of one respondent's walk through a question
// set. It is owned by the engine and only ever mutated from that respondent's
// serialized turn handler; its methods therefore take no locks.
type Session struct {
	respondent string
	mode       Mode
	questions  survey.QuestionSet

	position int
	answers  []survey.Answer
	answerAt map[string]int // question ID -> index into answers

	awaiting bool
	pending  *Pending
}

// New creates a session at position 0 over an already-validated question set.
func New(respondent string, mode Mode, questions survey.QuestionSet) *Session {
	return &Session{
		respondent: respondent,
		mode:       mode,
		questions:  questions,
		answerAt:   make(map[string]int, len(questions)),
	}
}

// Respondent returns the channel identity this session belongs to.
func (s *Session) Respondent() string { return s.respondent }

// Mode returns the rendering mode chosen at start.
func (s *Session) Mode() Mode { return s.mode }

// Position returns the current index; len(questions) means the form is
// complete.
func (s *Session) Position() int { return s.position }

// Len returns the total question count.
func (s *Session) Len() int { return len(s.questions) }

// Complete reports whether the respondent has passed the last question.
func (s *Session) Complete() bool { return s.position == len(s.questions) }

// Current returns the question at the current position. ok is false once the
// form is complete.
func (s *Session) Current() (q survey.Question, ok bool) {
	if s.Complete() {
		return survey.Question{}, false
	}
	return s.questions[s.position], true
}

// RecordAnswer stores a value for a question and clears the awaiting flag.
// Re-answering (after going back) overwrites the prior value in place, so the
// answer keeps its original insertion slot.
func (s *Session) RecordAnswer(questionID, value string) {
	if i, ok := s.answerAt[questionID]; ok {
		s.answers[i].Value = value
	} else {
		s.answerAt[questionID] = len(s.answers)
		s.answers = append(s.answers, survey.Answer{QuestionID: questionID, Value: value})
	}
	s.awaiting = false
}

// Advance moves to the next question and returns it; ok is false when the
// move completed the form.
func (s *Session) Advance() (q survey.Question, ok bool) {
	if !s.Complete() {
		s.position++
	}
	return s.Current()
}

// Rewind moves one question back, clamping silently at the first question.
func (s *Session) Rewind() (q survey.Question, ok bool) {
	if s.position > 0 {
		s.position--
	}
	return s.Current()
}

// TrySkip advances past the current question only if it is optional. Skipping
// a required question is always rejected and leaves the position unchanged.
func (s *Session) TrySkip() bool {
	q, ok := s.Current()
	if !ok || q.Required {
		return false
	}
	s.position++
	return true
}

// Awaiting reports whether a prompt was sent and no valid answer has been
// recorded yet.
func (s *Session) Awaiting() bool { return s.awaiting }

// SetAwaiting marks the prompt/answer cycle state.
func (s *Session) SetAwaiting(v bool) { s.awaiting = v }

// Pending returns the unconfirmed speech candidate, if any.
func (s *Session) Pending() (Pending, bool) {
	if s.pending == nil {
		return Pending{}, false
	}
	return *s.pending, true
}

// SetPending installs a speech candidate awaiting confirmation.
func (s *Session) SetPending(optionIndex int) {
	s.pending = &Pending{OptionIndex: optionIndex}
}

// ClearPending drops any unconfirmed candidate. Called at the start of every
// turn: an unresolved confirmation is simply superseded.
func (s *Session) ClearPending() { s.pending = nil }

// ProgressLabel renders a 1-based "question N of M" label for display and
// speech.
func (s *Session) ProgressLabel() string {
	return fmt.Sprintf("Вопрос %d из %d", s.position+1, len(s.questions))
}

// Submission builds the payload for the submission sink. Answers are emitted
// in insertion order, which back-navigation can make differ from question
// order.
func (s *Session) Submission() survey.Submission {
	answers := make([]survey.Answer, len(s.answers))
	copy(answers, s.answers)
	return survey.Submission{
		Source:     survey.SubmissionSource,
		Respondent: s.respondent,
		Answers:    answers,
	}
}
