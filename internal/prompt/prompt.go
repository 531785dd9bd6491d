// Package prompt holds the fixed Russian message set, the per-kind question
// rendering, and the inline keyboard layout with its opaque callback tokens.
// Rendering is pure string formatting; no transport or session state leaks in
// here.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/voicesurvey/anketabot-go/survey"
)

// Action is one labeled inline affordance bound to an opaque callback token.
type Action struct {
	Label string
	Token string
}

// Callback tokens. Index-carrying tokens use a "prefix:index" shape with a
// 1-based index so the wire form matches the numbers the respondent sees.
const (
	TokenRepeat    = "repeat"
	TokenRestart   = "restart"
	TokenHome      = "home"
	TokenModeText  = "mode:text"
	TokenModeVoice = "mode:voice"

	optionTokenPrefix  = "opt:"
	confirmTokenPrefix = "confirm:"
)

// OptionToken encodes a direct option pick for a 0-based option index.
func OptionToken(index int) string {
	return optionTokenPrefix + strconv.Itoa(index+1)
}

// ConfirmToken encodes confirmation of a speech candidate for a 0-based
// option index.
func ConfirmToken(index int) string {
	return confirmTokenPrefix + strconv.Itoa(index+1)
}

// ParseOptionToken returns the 0-based option index encoded in an option
// token.
func ParseOptionToken(token string) (int, bool) {
	return parseIndexToken(token, optionTokenPrefix)
}

// ParseConfirmToken returns the 0-based option index encoded in a confirm
// token.
func ParseConfirmToken(token string) (int, bool) {
	return parseIndexToken(token, confirmTokenPrefix)
}

func parseIndexToken(token, prefix string) (int, bool) {
	if !strings.HasPrefix(token, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(token[len(prefix):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// Fixed message set.
const (
	MsgInstructions = "Отвечайте на вопросы текстом или голосом.\n" +
		"Команды: «повторить» или 0 — повторить вопрос, «назад» — предыдущий вопрос, «пропустить» — пропустить необязательный вопрос."
	MsgSourceUnavailable = "Не удалось загрузить вопросы анкеты. Попробуйте позже."
	MsgSubmitted         = "Спасибо! Ваши ответы отправлены."
	MsgSubmitFailed      = "Не удалось отправить ответы. Пожалуйста, пройдите опрос ещё раз."
	MsgCannotHear        = "Не удалось распознать голосовое сообщение. Повторите, пожалуйста, или ответьте текстом."
	MsgSkipped           = "Вопрос пропущен."
	MsgSkipRejected      = "Этот вопрос обязательный, его нельзя пропустить."
	MsgBack              = "Возвращаемся к предыдущему вопросу."
	MsgBadDate           = "Неверный формат даты. Введите дату в формате ДД.ММ.ГГГГ, например 15.03.1990."
	MsgBadPhone          = "Неверный формат телефона. Номер должен начинаться с +7 или 8."
	MsgEmpty             = "Пустой ответ не принимается. Попробуйте ещё раз."
	MsgIdle              = "Чтобы начать опрос, отправьте /start."
)

// Welcome greets the respondent on the home screen; the mode keyboard is
// attached alongside.
func Welcome(name string) string {
	if name == "" {
		name = "Пользователь"
	}
	return fmt.Sprintf("Добро пожаловать, %s!\nВыберите версию опроса:", name)
}

// Question renders the textual prompt for a question: progress label, the
// question text, kind-specific guidance, and 1-based enumerated options for
// choice questions.
func Question(q survey.Question, progress string) string {
	var b strings.Builder
	b.WriteString(progress)
	if q.Required {
		b.WriteString(" (обязательный)")
	}
	b.WriteString("\n")
	b.WriteString(q.Text)
	if q.Hint != "" {
		b.WriteString("\n")
		b.WriteString(q.Hint)
	}
	switch {
	case q.HasOptions():
		b.WriteString("\n\nВарианты ответа:")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
		}
		b.WriteString("\n\nОтправьте номер или текст варианта.")
	case q.Kind == survey.KindDate:
		b.WriteString("\n\nВведите дату в формате ДД.ММ.ГГГГ.")
	}
	return b.String()
}

// SpokenQuestion renders the spoken version of a prompt: same content as
// Question but phrased for listening, with options read out by number.
func SpokenQuestion(q survey.Question, progress string) string {
	var b strings.Builder
	b.WriteString(progress)
	b.WriteString(". ")
	b.WriteString(q.Text)
	if q.HasOptions() {
		b.WriteString(" Варианты ответа:")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, " вариант %d — %s.", i+1, opt)
		}
		b.WriteString(" Назовите номер или вариант.")
	} else if q.Kind == survey.KindDate {
		b.WriteString(" Назовите дату в формате день, месяц, год.")
	}
	return b.String()
}

// Recorded confirms the stored value back to the respondent.
func Recorded(value string) string {
	return fmt.Sprintf("Ответ записан: %s", value)
}

// Confirm asks the respondent to confirm a partially-matched speech answer.
func Confirm(option string) string {
	return fmt.Sprintf("Вы имели в виду «%s»?", option)
}

// NoMatch explains a failed option match and re-lists the options so index
// numbering stays in front of the respondent.
func NoMatch(q survey.Question) string {
	var b strings.Builder
	b.WriteString("Не удалось сопоставить ответ с вариантами.")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
	}
	b.WriteString("\nОтправьте номер или текст варианта.")
	return b.String()
}

// ModeActions is the home-screen version choice.
func ModeActions() []Action {
	return []Action{
		{Label: "Текстовая версия", Token: TokenModeText},
		{Label: "Голосовая версия", Token: TokenModeVoice},
	}
}

// OptionActions lays out one button per option for choice questions.
func OptionActions(q survey.Question) []Action {
	if !q.HasOptions() {
		return nil
	}
	actions := make([]Action, 0, len(q.Options))
	for i, opt := range q.Options {
		actions = append(actions, Action{Label: opt, Token: OptionToken(i)})
	}
	return actions
}

// ConfirmActions binds the explicit confirm affordance for a speech
// candidate plus a repeat fallback.
func ConfirmActions(optionIndex int) []Action {
	return []Action{
		{Label: "Да, верно", Token: ConfirmToken(optionIndex)},
		{Label: "Повторить вопрос", Token: TokenRepeat},
	}
}

// FinishActions is offered after completion or a failed submission.
func FinishActions() []Action {
	return []Action{
		{Label: "Пройти ещё раз", Token: TokenRestart},
		{Label: "В начало", Token: TokenHome},
	}
}
