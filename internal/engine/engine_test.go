package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/voicesurvey/anketabot-go/internal/prompt"
	"github.com/voicesurvey/anketabot-go/sessions"
	"github.com/voicesurvey/anketabot-go/speech"
	"github.com/voicesurvey/anketabot-go/survey"
)

// --- fakes ---

type delivery struct {
	kind    string // "text", "voice", "actions"
	text    string
	actions []prompt.Action
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []delivery
	failText bool
}

func (c *fakeChannel) SendText(ctx context.Context, respondent, text string) error {
	if c.failText {
		return errors.New("text delivery down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, delivery{kind: "text", text: text})
	return nil
}

func (c *fakeChannel) SendVoice(ctx context.Context, respondent string, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, delivery{kind: "voice", text: string(audio)})
	return nil
}

func (c *fakeChannel) SendActions(ctx context.Context, respondent, text string, actions []prompt.Action) error {
	if c.failText {
		return errors.New("text delivery down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, delivery{kind: "actions", text: text, actions: actions})
	return nil
}

func (c *fakeChannel) last() delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return delivery{}
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeChannel) contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.sent {
		if strings.Contains(d.text, substr) {
			return true
		}
	}
	return false
}

func (c *fakeChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type fakeSource struct {
	set survey.QuestionSet
	err error
}

func (s *fakeSource) Questions(ctx context.Context, formID string) (survey.QuestionSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

type fakeSink struct {
	mu          sync.Mutex
	submissions []survey.Submission
	err         error
}

func (s *fakeSink) Submit(ctx context.Context, formID string, sub survey.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.submissions = append(s.submissions, sub)
	return nil
}

type fakeSpeech struct {
	transcript   string
	recognizeErr error
	synthErr     error
}

func (p *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if p.synthErr != nil {
		return nil, p.synthErr
	}
	return []byte("audio:" + text), nil
}

func (p *fakeSpeech) Recognize(ctx context.Context, audio []byte) (string, error) {
	if p.recognizeErr != nil {
		return "", p.recognizeErr
	}
	return p.transcript, nil
}

// --- fixtures ---

func scenarioSet() survey.QuestionSet {
	return survey.QuestionSet{
		{ID: "q1", Text: "Выберите вариант", Kind: survey.KindSelect, Required: true, Options: []string{"A", "B"}},
		{ID: "q2", Text: "Комментарий", Kind: survey.KindTextarea},
	}
}

func newTestEngine(t *testing.T, set survey.QuestionSet) (*Engine, *fakeChannel, *fakeSink, *fakeSpeech) {
	t.Helper()
	ch := &fakeChannel{}
	sink := &fakeSink{}
	sp := &fakeSpeech{}
	e := New(ch, &fakeSource{set: set}, sink, sp, "form-1")
	return e, ch, sink, sp
}

// --- tests ---

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	e, ch, sink, _ := newTestEngine(t, scenarioSet())

	if err := e.Start(ctx, "r1", sessions.ModeText); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !ch.contains("Вопрос 1 из 2") {
		t.Fatal("first question not prompted")
	}

	if err := e.HandleText(ctx, "r1", "1"); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if !ch.contains("Ответ записан: A") {
		t.Fatal("answer confirmation missing")
	}
	if !ch.contains("Вопрос 2 из 2") {
		t.Fatal("second question not prompted")
	}

	if err := e.HandleText(ctx, "r1", "пропустить"); err != nil {
		t.Fatalf("skip q2: %v", err)
	}

	if len(sink.submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(sink.submissions))
	}
	sub := sink.submissions[0]
	if sub.Source != survey.SubmissionSource || sub.Respondent != "r1" {
		t.Fatalf("submission header = %+v", sub)
	}
	if len(sub.Answers) != 1 || sub.Answers[0] != (survey.Answer{QuestionID: "q1", Value: "A"}) {
		t.Fatalf("answers = %v, want only q1=A (q2 skipped)", sub.Answers)
	}
	if !ch.contains(prompt.MsgSubmitted) {
		t.Fatal("completion message missing")
	}
	if got := ch.last(); got.kind != "actions" || got.actions[0].Token != prompt.TokenRestart {
		t.Fatalf("completion must offer restart/home, got %+v", got)
	}
	if e.ActiveSessions() != 0 {
		t.Fatal("session must be removed after completion")
	}
}

func TestSourceUnavailable(t *testing.T) {
	ctx := context.Background()
	ch := &fakeChannel{}
	e := New(ch, &fakeSource{err: survey.ErrSourceUnavailable}, &fakeSink{}, nil, "form-1")

	if err := e.Start(ctx, "r1", sessions.ModeText); err != nil {
		t.Fatalf("start must recover: %v", err)
	}
	if e.ActiveSessions() != 0 {
		t.Fatal("no session may be created on source failure")
	}
	if !ch.contains(prompt.MsgSourceUnavailable) {
		t.Fatal("retry-later notice missing")
	}
}

func TestSourceUnavailableSpokenInVoiceMode(t *testing.T) {
	ctx := context.Background()
	ch := &fakeChannel{}
	e := New(ch, &fakeSource{err: survey.ErrSourceUnavailable}, &fakeSink{}, &fakeSpeech{}, "form-1")

	if err := e.Start(ctx, "r1", sessions.ModeVoice); err != nil {
		t.Fatalf("start must recover: %v", err)
	}
	if !ch.contains(prompt.MsgSourceUnavailable) {
		t.Fatal("retry-later notice missing")
	}
	// The voice-mode respondent hears the failure too, session or not.
	if !ch.contains("audio:" + prompt.MsgSourceUnavailable) {
		t.Fatalf("spoken rendering of the notice missing; sent=%+v", ch.sent)
	}
	if got := ch.last(); got.kind != "voice" {
		t.Fatalf("last delivery = %+v, want the spoken notice", got)
	}
}

func TestSubmissionFailureDiscardsSession(t *testing.T) {
	ctx := context.Background()
	ch := &fakeChannel{}
	sink := &fakeSink{err: survey.ErrSubmissionFailed}
	e := New(ch, &fakeSource{set: scenarioSet()}, sink, nil, "form-1")

	e.Start(ctx, "r1", sessions.ModeText)
	e.HandleText(ctx, "r1", "1")
	if err := e.HandleText(ctx, "r1", "пропустить"); err != nil {
		t.Fatalf("completion turn must recover: %v", err)
	}

	if e.ActiveSessions() != 0 {
		t.Fatal("session is discarded even when submission fails")
	}
	if !ch.contains(prompt.MsgSubmitFailed) {
		t.Fatal("failure notice missing")
	}
	if got := ch.last(); got.kind != "actions" || got.actions[1].Token != prompt.TokenHome {
		t.Fatalf("failure must offer restart/home, got %+v", got)
	}
}

func TestSpeechConfirmFlow(t *testing.T) {
	ctx := context.Background()
	set := survey.QuestionSet{
		{ID: "q1", Text: "Подтвердите участие", Kind: survey.KindSelect, Required: true, Options: []string{"Да", "Нет"}},
	}
	e, ch, sink, sp := newTestEngine(t, set)
	sp.transcript = "нет наверное"

	e.Start(ctx, "r1", sessions.ModeVoice)
	if err := e.HandleVoice(ctx, "r1", []byte("ogg")); err != nil {
		t.Fatalf("voice turn: %v", err)
	}

	// Nothing recorded yet: a confirmation affordance is presented.
	if len(sink.submissions) != 0 {
		t.Fatal("partial match must not complete the form")
	}
	if !ch.contains("Вы имели в виду «Нет»?") {
		t.Fatal("confirmation prompt missing")
	}

	if err := e.HandleCallback(ctx, "r1", "", prompt.ConfirmToken(1)); err != nil {
		t.Fatalf("confirm turn: %v", err)
	}
	if !ch.contains("Ответ записан: Нет") {
		t.Fatal("confirmed value not recorded")
	}
	if len(sink.submissions) != 1 || sink.submissions[0].Answers[0].Value != "Нет" {
		t.Fatalf("submission = %+v", sink.submissions)
	}
}

func TestPendingSupersededByNextUtterance(t *testing.T) {
	ctx := context.Background()
	set := survey.QuestionSet{
		{ID: "q1", Text: "Подтвердите участие", Kind: survey.KindSelect, Required: true, Options: []string{"Да", "Нет"}},
		{ID: "q2", Text: "Комментарий", Kind: survey.KindTextarea},
	}
	e, ch, _, sp := newTestEngine(t, set)
	sp.transcript = "нет наверное"

	e.Start(ctx, "r1", sessions.ModeVoice)
	e.HandleVoice(ctx, "r1", []byte("ogg"))

	// The respondent types a definite answer instead of confirming.
	if err := e.HandleText(ctx, "r1", "Да"); err != nil {
		t.Fatalf("typed turn: %v", err)
	}
	if !ch.contains("Ответ записан: Да") {
		t.Fatal("typed answer must supersede the pending candidate")
	}
}

func TestRecognitionFailure(t *testing.T) {
	ctx := context.Background()
	e, ch, _, sp := newTestEngine(t, scenarioSet())
	sp.recognizeErr = speech.ErrRecognitionFailed

	e.Start(ctx, "r1", sessions.ModeVoice)
	sess, _ := e.store.Get("r1")
	posBefore := sess.Position()

	if err := e.HandleVoice(ctx, "r1", []byte("ogg")); err != nil {
		t.Fatalf("voice turn must recover: %v", err)
	}
	if sess.Position() != posBefore || !sess.Awaiting() {
		t.Fatal("recognition failure must not mutate the session")
	}
	if !ch.contains(prompt.MsgCannotHear) {
		t.Fatal("retry notice missing")
	}
}

func TestSkipRequiredRejected(t *testing.T) {
	ctx := context.Background()
	e, ch, _, _ := newTestEngine(t, scenarioSet())

	e.Start(ctx, "r1", sessions.ModeText)
	if err := e.HandleText(ctx, "r1", "пропустить"); err != nil {
		t.Fatalf("skip turn: %v", err)
	}

	sess, _ := e.store.Get("r1")
	if sess.Position() != 0 || !sess.Awaiting() {
		t.Fatal("rejected skip must leave the session awaiting on the same question")
	}
	if !ch.contains(prompt.MsgSkipRejected) {
		t.Fatal("skip rejection notice missing")
	}
}

func TestRepeatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, ch, _, _ := newTestEngine(t, scenarioSet())

	e.Start(ctx, "r1", sessions.ModeText)
	ch.reset()
	e.HandleText(ctx, "r1", "0")
	first := ch.last()
	ch.reset()
	e.HandleText(ctx, "r1", "повторить вопрос")
	second := ch.last()
	if first.text != second.text {
		t.Fatalf("repeat renderings differ:\n%s\nvs\n%s", first.text, second.text)
	}

	// Numeric selection still resolves to the same option after re-display.
	e.HandleText(ctx, "r1", "2")
	if !ch.contains("Ответ записан: B") {
		t.Fatal("selection after repeat must pick the stable index")
	}
}

func TestPreviousRewindsAndReanswers(t *testing.T) {
	ctx := context.Background()
	e, ch, sink, _ := newTestEngine(t, scenarioSet())

	e.Start(ctx, "r1", sessions.ModeText)
	e.HandleText(ctx, "r1", "1") // q1 = A, now on q2
	e.HandleText(ctx, "r1", "назад")
	if !ch.contains(prompt.MsgBack) {
		t.Fatal("rewind announcement missing")
	}

	e.HandleText(ctx, "r1", "2")      // q1 = B now
	e.HandleText(ctx, "r1", "готово") // q2 freeform, completes

	if len(sink.submissions) != 1 {
		t.Fatalf("submissions = %d", len(sink.submissions))
	}
	answers := sink.submissions[0].Answers
	if answers[0] != (survey.Answer{QuestionID: "q1", Value: "B"}) {
		t.Fatalf("re-answer must overwrite in place, got %v", answers)
	}
	if answers[1] != (survey.Answer{QuestionID: "q2", Value: "готово"}) {
		t.Fatalf("answers = %v", answers)
	}
}

func TestTypedPartialMatchRejected(t *testing.T) {
	ctx := context.Background()
	set := survey.QuestionSet{
		{ID: "q1", Text: "Подтвердите участие", Kind: survey.KindSelect, Required: true, Options: []string{"Да", "Нет"}},
	}
	e, ch, sink, _ := newTestEngine(t, set)

	e.Start(ctx, "r1", sessions.ModeText)
	if err := e.HandleText(ctx, "r1", "не"); err != nil {
		t.Fatalf("turn: %v", err)
	}
	if len(sink.submissions) != 0 {
		t.Fatal("typed partial input must not be auto-confirmed")
	}
	if !ch.contains("Не удалось сопоставить ответ") {
		t.Fatal("no-match notice with options missing")
	}
	sess, _ := e.store.Get("r1")
	if !sess.Awaiting() {
		t.Fatal("session must stay awaiting after rejection")
	}
}

func TestStrayInputWithoutSession(t *testing.T) {
	ctx := context.Background()
	e, ch, sink, _ := newTestEngine(t, scenarioSet())

	if err := e.HandleText(ctx, "r1", "привет"); err != nil {
		t.Fatalf("stray turn: %v", err)
	}
	if len(sink.submissions) != 0 || e.ActiveSessions() != 0 {
		t.Fatal("stray input must not create state")
	}
	if !ch.contains(prompt.MsgIdle) {
		t.Fatal("idle hint missing")
	}
}

func TestVoiceModeSpeaksPrompts(t *testing.T) {
	ctx := context.Background()
	e, ch, _, _ := newTestEngine(t, scenarioSet())

	e.Start(ctx, "r1", sessions.ModeVoice)

	var voices int
	ch.mu.Lock()
	for _, d := range ch.sent {
		if d.kind == "voice" {
			voices++
		}
	}
	ch.mu.Unlock()
	if voices == 0 {
		t.Fatal("voice mode must deliver spoken renderings")
	}
}

func TestSynthesisFailureDoesNotBlockText(t *testing.T) {
	ctx := context.Background()
	e, ch, _, sp := newTestEngine(t, scenarioSet())
	sp.synthErr = errors.New("tts down")

	if err := e.Start(ctx, "r1", sessions.ModeVoice); err != nil {
		t.Fatalf("start must succeed without speech: %v", err)
	}
	if !ch.contains("Вопрос 1 из 2") {
		t.Fatal("text prompt must be delivered despite synthesis failure")
	}
}

func TestTextDeliveryFailureFailsTurn(t *testing.T) {
	ctx := context.Background()
	ch := &fakeChannel{failText: true}
	e := New(ch, &fakeSource{set: scenarioSet()}, &fakeSink{}, nil, "form-1")

	if err := e.Start(ctx, "r1", sessions.ModeText); err == nil {
		t.Fatal("text delivery failure must surface from the turn")
	}
}

func TestHomeDiscardsSession(t *testing.T) {
	ctx := context.Background()
	e, ch, _, _ := newTestEngine(t, scenarioSet())

	e.Start(ctx, "r1", sessions.ModeText)
	if err := e.HandleCallback(ctx, "r1", "Анна", prompt.TokenHome); err != nil {
		t.Fatalf("home: %v", err)
	}
	if e.ActiveSessions() != 0 {
		t.Fatal("home must discard the session unconditionally")
	}
	got := ch.last()
	if got.kind != "actions" || got.actions[0].Token != prompt.TokenModeText {
		t.Fatalf("home must show the version choice, got %+v", got)
	}
}

func TestRestartReusesMode(t *testing.T) {
	ctx := context.Background()
	e, ch, _, _ := newTestEngine(t, scenarioSet())

	e.Start(ctx, "r1", sessions.ModeVoice)
	ch.reset()
	if err := e.HandleCallback(ctx, "r1", "", prompt.TokenRestart); err != nil {
		t.Fatalf("restart: %v", err)
	}
	sess, ok := e.store.Get("r1")
	if !ok {
		t.Fatal("restart must create a fresh session")
	}
	if sess.Mode() != sessions.ModeVoice {
		t.Fatalf("restart mode = %v, want voice", sess.Mode())
	}
	if sess.Position() != 0 {
		t.Fatal("restart must begin at the first question")
	}
}

func TestDateAndPhoneRejections(t *testing.T) {
	ctx := context.Background()
	set := survey.QuestionSet{
		{ID: "q1", Text: "Дата визита", Kind: survey.KindDate, Required: true},
		{ID: "q2", Text: "Телефон", Kind: survey.KindText, Required: true, Hint: "в формате +7XXXXXXXXXX"},
	}
	e, ch, sink, _ := newTestEngine(t, set)

	e.Start(ctx, "r1", sessions.ModeText)
	e.HandleText(ctx, "r1", "15-03-1990")
	if !ch.contains(prompt.MsgBadDate) {
		t.Fatal("bad date notice missing")
	}
	e.HandleText(ctx, "r1", "15.03.1990")
	if !ch.contains("Ответ записан: 15.03.1990") {
		t.Fatal("valid date not recorded")
	}

	e.HandleText(ctx, "r1", "9991234567")
	if !ch.contains(prompt.MsgBadPhone) {
		t.Fatal("bad phone notice missing")
	}
	e.HandleText(ctx, "r1", "89991234567")

	if len(sink.submissions) != 1 {
		t.Fatalf("submissions = %d", len(sink.submissions))
	}
	answers := sink.submissions[0].Answers
	if answers[0].Value != "15.03.1990" || answers[1].Value != "89991234567" {
		t.Fatalf("answers = %v", answers)
	}
}

func TestConcurrentRespondentsIndependent(t *testing.T) {
	ctx := context.Background()
	e, _, sink, _ := newTestEngine(t, scenarioSet())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			e.Start(ctx, id, sessions.ModeText)
			e.HandleText(ctx, id, "1")
			e.HandleText(ctx, id, "пропустить")
		}(i)
	}
	wg.Wait()

	if len(sink.submissions) != 8 {
		t.Fatalf("submissions = %d, want 8", len(sink.submissions))
	}
	if e.ActiveSessions() != 0 {
		t.Fatal("all sessions should be completed and removed")
	}
}
