// Package engine drives the per-respondent conversation: it owns the session
// store, classifies inbound utterances via resolve, applies the resulting
// transition, and renders the next prompt through the messaging channel and,
// best-effort, the speech provider. Every failure is recovered at the turn
// level — a broken gateway call ends the current turn (or, for submission,
// the current session), never the process.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/voicesurvey/anketabot-go/internal/logctx"
	"github.com/voicesurvey/anketabot-go/internal/prompt"
	"github.com/voicesurvey/anketabot-go/internal/resolve"
	"github.com/voicesurvey/anketabot-go/sessions"
	"github.com/voicesurvey/anketabot-go/speech"
	"github.com/voicesurvey/anketabot-go/survey"
)

// Channel is the messaging side the engine talks through. Implementations
// deliver to a single respondent identified by their channel identity. Text
// delivery failure is fatal to the turn; voice delivery is only ever invoked
// best-effort.
type Channel interface {
	SendText(ctx context.Context, respondent string, text string) error
	SendVoice(ctx context.Context, respondent string, audio []byte) error
	SendActions(ctx context.Context, respondent string, text string, actions []prompt.Action) error
}

// Engine is the conversation session engine. All entry points serialize turns
// per respondent: no two utterances from the same respondent are ever
// processed concurrently, while different respondents proceed independently.
type Engine struct {
	channel Channel
	source  survey.QuestionSource
	sink    survey.SubmissionSink
	speech  speech.Provider // nil disables spoken renderings

	formID string
	store  *sessions.Store
	log    *slog.Logger

	turnMu sync.Mutex
	turns  map[string]*sync.Mutex
	modes  map[string]sessions.Mode // last chosen mode, for restart
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(channel Channel, source survey.QuestionSource, sink survey.SubmissionSink, provider speech.Provider, formID string, opts ...Option) *Engine {
	e := &Engine{
		channel: channel,
		source:  source,
		sink:    sink,
		speech:  provider,
		formID:  formID,
		store:   sessions.NewStore(),
		log:     slog.Default(),
		turns:   make(map[string]*sync.Mutex),
		modes:   make(map[string]sessions.Mode),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ActiveSessions reports the number of respondents currently mid-form.
func (e *Engine) ActiveSessions() int { return e.store.Len() }

// lockTurn acquires the per-respondent turn lock, creating it on first use.
// Entries are kept for the life of the process; the map is bounded by the
// number of distinct respondents.
func (e *Engine) lockTurn(respondent string) func() {
	e.turnMu.Lock()
	mu, ok := e.turns[respondent]
	if !ok {
		mu = &sync.Mutex{}
		e.turns[respondent] = mu
	}
	e.turnMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) turnContext(ctx context.Context, respondent, inputKind string) context.Context {
	return logctx.WithTurnData(ctx, &logctx.TurnData{
		TurnID:     uuid.NewString(),
		Respondent: respondent,
		InputKind:  inputKind,
	})
}

// ShowHome discards any active session and presents the top-level
// version-choice prompt.
func (e *Engine) ShowHome(ctx context.Context, respondent, name string) error {
	unlock := e.lockTurn(respondent)
	defer unlock()
	ctx = e.turnContext(ctx, respondent, "callback")

	e.store.Delete(respondent)
	return e.channel.SendActions(ctx, respondent, prompt.Welcome(name), prompt.ModeActions())
}

// Start loads the question set and begins a session at the first question. A
// source failure creates no session; the respondent is told to retry later.
func (e *Engine) Start(ctx context.Context, respondent string, mode sessions.Mode) error {
	unlock := e.lockTurn(respondent)
	defer unlock()
	ctx = e.turnContext(ctx, respondent, "callback")
	return e.start(ctx, respondent, mode)
}

func (e *Engine) start(ctx context.Context, respondent string, mode sessions.Mode) error {
	qs, err := e.source.Questions(ctx, e.formID)
	if err != nil {
		e.log.WarnContext(ctx, "question source unavailable", slog.String("form_id", e.formID), slog.String("err", err.Error()))
		if err := e.channel.SendText(ctx, respondent, prompt.MsgSourceUnavailable); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
		e.speakTo(ctx, respondent, mode, prompt.MsgSourceUnavailable)
		return nil
	}

	e.turnMu.Lock()
	e.modes[respondent] = mode
	e.turnMu.Unlock()

	sess := sessions.New(respondent, mode, qs)
	e.store.Put(sess)
	ctx = e.sessionContext(ctx, sess)
	e.log.InfoContext(ctx, "session started", slog.Int("questions", sess.Len()))

	if err := e.announce(ctx, sess, prompt.MsgInstructions); err != nil {
		return err
	}
	return e.promptCurrent(ctx, sess)
}

func (e *Engine) sessionContext(ctx context.Context, sess *sessions.Session) context.Context {
	return logctx.WithSessionData(ctx, &logctx.SessionData{
		FormID:   e.formID,
		Mode:     string(sess.Mode()),
		Position: sess.Position(),
	})
}

// HandleText processes one typed utterance.
func (e *Engine) HandleText(ctx context.Context, respondent, text string) error {
	unlock := e.lockTurn(respondent)
	defer unlock()
	ctx = e.turnContext(ctx, respondent, "text")

	sess, ok := e.activeSession(ctx, respondent)
	if !ok {
		return nil
	}
	ctx = e.sessionContext(ctx, sess)
	return e.applyUtterance(ctx, sess, text, false)
}

// HandleVoice transcribes a voice clip and processes the transcript as a
// spoken utterance. Recognition failure mutates nothing; the respondent is
// asked to retry or type instead.
func (e *Engine) HandleVoice(ctx context.Context, respondent string, audio []byte) error {
	unlock := e.lockTurn(respondent)
	defer unlock()
	ctx = e.turnContext(ctx, respondent, "voice")

	sess, ok := e.activeSession(ctx, respondent)
	if !ok {
		return nil
	}
	ctx = e.sessionContext(ctx, sess)

	if e.speech == nil || len(audio) == 0 {
		return e.announce(ctx, sess, prompt.MsgCannotHear)
	}
	transcript, err := e.speech.Recognize(ctx, audio)
	if err != nil {
		e.log.WarnContext(ctx, "recognition failed", slog.String("err", err.Error()))
		return e.announce(ctx, sess, prompt.MsgCannotHear)
	}
	e.log.DebugContext(ctx, "voice transcribed", slog.String("transcript", transcript))
	return e.applyUtterance(ctx, sess, transcript, true)
}

// HandleCallback processes a pressed inline action identified by its opaque
// token. Top-level tokens (mode choice, restart, home) work in any state;
// everything else requires an awaiting session.
func (e *Engine) HandleCallback(ctx context.Context, respondent, name, token string) error {
	unlock := e.lockTurn(respondent)
	defer unlock()
	ctx = e.turnContext(ctx, respondent, "callback")

	switch token {
	case prompt.TokenModeText:
		return e.start(ctx, respondent, sessions.ModeText)
	case prompt.TokenModeVoice:
		return e.start(ctx, respondent, sessions.ModeVoice)
	case prompt.TokenRestart:
		e.turnMu.Lock()
		mode, ok := e.modes[respondent]
		e.turnMu.Unlock()
		if !ok {
			mode = sessions.ModeText
		}
		e.store.Delete(respondent)
		return e.start(ctx, respondent, mode)
	case prompt.TokenHome:
		e.store.Delete(respondent)
		return e.channel.SendActions(ctx, respondent, prompt.Welcome(name), prompt.ModeActions())
	}

	sess, ok := e.activeSession(ctx, respondent)
	if !ok {
		return nil
	}
	ctx = e.sessionContext(ctx, sess)

	if token == prompt.TokenRepeat {
		sess.ClearPending()
		return e.promptCurrent(ctx, sess)
	}
	if idx, ok := prompt.ParseConfirmToken(token); ok {
		sess.ClearPending()
		return e.recordOption(ctx, sess, idx)
	}
	if idx, ok := prompt.ParseOptionToken(token); ok {
		sess.ClearPending()
		return e.recordOption(ctx, sess, idx)
	}

	e.log.DebugContext(ctx, "unknown callback token ignored", slog.String("token", token))
	return nil
}

// activeSession fetches an awaiting session. Stray input outside an active
// prompt/answer cycle is ignored; respondents without a session get a hint to
// start over.
func (e *Engine) activeSession(ctx context.Context, respondent string) (*sessions.Session, bool) {
	sess, ok := e.store.Get(respondent)
	if !ok {
		e.log.DebugContext(ctx, "utterance without a session")
		if err := e.channel.SendText(ctx, respondent, prompt.MsgIdle); err != nil {
			e.log.WarnContext(ctx, "idle hint delivery failed", slog.String("err", err.Error()))
		}
		return nil, false
	}
	if !sess.Awaiting() {
		e.log.DebugContext(ctx, "utterance while not awaiting input ignored")
		return nil, false
	}
	return sess, true
}

// applyUtterance classifies one utterance against the current question and
// applies the transition. A pending speech confirmation is superseded by
// whatever arrives next.
func (e *Engine) applyUtterance(ctx context.Context, sess *sessions.Session, raw string, fromSpeech bool) error {
	q, ok := sess.Current()
	if !ok {
		return nil
	}
	sess.ClearPending()

	res := resolve.Utterance(q, raw, fromSpeech)
	switch res.Kind {
	case resolve.KindNavigation:
		return e.applyNavigation(ctx, sess, res.Nav)

	case resolve.KindSelected:
		return e.recordOption(ctx, sess, res.OptionIndex)

	case resolve.KindConfirm:
		option := q.Options[res.OptionIndex]
		sess.SetPending(res.OptionIndex)
		if err := e.channel.SendActions(ctx, sess.Respondent(), prompt.Confirm(option), prompt.ConfirmActions(res.OptionIndex)); err != nil {
			return fmt.Errorf("send confirmation prompt: %w", err)
		}
		e.speak(ctx, sess, prompt.Confirm(option))
		return nil

	case resolve.KindFreeform:
		return e.record(ctx, sess, q, res.Text)

	case resolve.KindRejected:
		return e.rejectAnswer(ctx, sess, q, res.Reason)
	}
	return nil
}

func (e *Engine) applyNavigation(ctx context.Context, sess *sessions.Session, nav resolve.Nav) error {
	switch nav {
	case resolve.NavRepeat:
		return e.promptCurrent(ctx, sess)
	case resolve.NavPrevious:
		sess.Rewind()
		if err := e.announce(ctx, sess, prompt.MsgBack); err != nil {
			return err
		}
		return e.promptCurrent(ctx, sess)
	case resolve.NavSkip:
		if !sess.TrySkip() {
			return e.announce(ctx, sess, prompt.MsgSkipRejected)
		}
		if err := e.announce(ctx, sess, prompt.MsgSkipped); err != nil {
			return err
		}
		return e.promptCurrent(ctx, sess)
	}
	return nil
}

// recordOption records the option at a 0-based index for the current
// question. Indexes are stable for the session's lifetime, so confirm and
// option tokens resolve against the live question safely.
func (e *Engine) recordOption(ctx context.Context, sess *sessions.Session, index int) error {
	q, ok := sess.Current()
	if !ok {
		return nil
	}
	if !q.HasOptions() || index < 0 || index >= len(q.Options) {
		e.log.DebugContext(ctx, "option index out of range ignored", slog.Int("index", index))
		return nil
	}
	return e.record(ctx, sess, q, q.Options[index])
}

func (e *Engine) record(ctx context.Context, sess *sessions.Session, q survey.Question, value string) error {
	sess.RecordAnswer(q.ID, value)
	e.log.InfoContext(ctx, "answer recorded", slog.String("question_id", q.ID))
	if err := e.announce(ctx, sess, prompt.Recorded(value)); err != nil {
		return err
	}
	sess.Advance()
	return e.promptCurrent(ctx, sess)
}

func (e *Engine) rejectAnswer(ctx context.Context, sess *sessions.Session, q survey.Question, reason resolve.Reason) error {
	var msg string
	switch reason {
	case resolve.ReasonBadDate:
		msg = prompt.MsgBadDate
	case resolve.ReasonBadPhone:
		msg = prompt.MsgBadPhone
	case resolve.ReasonEmpty:
		msg = prompt.MsgEmpty
	default:
		msg = prompt.NoMatch(q)
	}
	e.log.DebugContext(ctx, "answer rejected", slog.String("reason", string(reason)))
	return e.announce(ctx, sess, msg)
}

// promptCurrent renders the question at the current position, or completes
// the form when the position is past the last question. Re-running it is
// idempotent; option numbering never changes for the life of the session.
func (e *Engine) promptCurrent(ctx context.Context, sess *sessions.Session) error {
	q, ok := sess.Current()
	if !ok {
		return e.complete(ctx, sess)
	}

	text := prompt.Question(q, sess.ProgressLabel())
	var err error
	if actions := prompt.OptionActions(q); len(actions) > 0 {
		err = e.channel.SendActions(ctx, sess.Respondent(), text, actions)
	} else {
		err = e.channel.SendText(ctx, sess.Respondent(), text)
	}
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	e.speak(ctx, sess, prompt.SpokenQuestion(q, sess.ProgressLabel()))
	sess.SetAwaiting(true)
	return nil
}

// complete submits the collected answers and discards the session. The
// session is discarded whether or not submission succeeds; there is no
// partial-submission retry, the respondent restarts the whole form.
func (e *Engine) complete(ctx context.Context, sess *sessions.Session) error {
	sub := sess.Submission()
	err := e.sink.Submit(ctx, e.formID, sub)
	e.store.Delete(sess.Respondent())

	if err != nil {
		e.log.ErrorContext(ctx, "submission failed", slog.Int("answers", len(sub.Answers)), slog.String("err", err.Error()))
		if serr := e.channel.SendActions(ctx, sess.Respondent(), prompt.MsgSubmitFailed, prompt.FinishActions()); serr != nil {
			return fmt.Errorf("send submission failure notice: %w", serr)
		}
		e.speak(ctx, sess, prompt.MsgSubmitFailed)
		return nil
	}

	e.log.InfoContext(ctx, "form submitted", slog.Int("answers", len(sub.Answers)))
	if serr := e.channel.SendActions(ctx, sess.Respondent(), prompt.MsgSubmitted, prompt.FinishActions()); serr != nil {
		return fmt.Errorf("send completion notice: %w", serr)
	}
	e.speak(ctx, sess, prompt.MsgSubmitted)
	return nil
}

// announce delivers a user-visible message as two independent side effects:
// the required text rendering and a best-effort spoken rendering.
func (e *Engine) announce(ctx context.Context, sess *sessions.Session, text string) error {
	if err := e.channel.SendText(ctx, sess.Respondent(), text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	e.speak(ctx, sess, text)
	return nil
}

// speak synthesizes and delivers a spoken rendering for voice-mode sessions.
// Failures are logged and ignored; speech must never block the text path.
func (e *Engine) speak(ctx context.Context, sess *sessions.Session, text string) {
	e.speakTo(ctx, sess.Respondent(), sess.Mode(), text)
}

// speakTo is the session-free variant of speak, for failures that happen
// before a session exists.
func (e *Engine) speakTo(ctx context.Context, respondent string, mode sessions.Mode, text string) {
	if e.speech == nil || mode != sessions.ModeVoice {
		return
	}
	audio, err := e.speech.Synthesize(ctx, text)
	if err != nil {
		e.log.WarnContext(ctx, "speech synthesis failed", slog.String("err", err.Error()))
		return
	}
	if err := e.channel.SendVoice(ctx, respondent, audio); err != nil {
		e.log.WarnContext(ctx, "voice delivery failed", slog.String("err", err.Error()))
	}
}
