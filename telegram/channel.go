package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/voicesurvey/anketabot-go/internal/engine"
	"github.com/voicesurvey/anketabot-go/internal/prompt"
)

// Channel delivers engine output to Telegram chats.
type Channel struct {
	bot    *tgbotapi.BotAPI
	log    *slog.Logger
	tmpDir string
}

var _ engine.Channel = (*Channel)(nil)

// NewChannel wraps an authorized bot client. tmpDir holds transient voice
// artifacts; the empty string means the OS temp directory.
func NewChannel(bot *tgbotapi.BotAPI, log *slog.Logger, tmpDir string) *Channel {
	if log == nil {
		log = slog.Default()
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Channel{bot: bot, log: log, tmpDir: tmpDir}
}

func (c *Channel) SendText(ctx context.Context, respondent, text string) error {
	chatID, err := parseChatID(respondent)
	if err != nil {
		return err
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

func (c *Channel) SendActions(ctx context.Context, respondent, text string, actions []prompt.Action) error {
	chatID, err := parseChatID(respondent)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = actionKeyboard(actions)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send message with keyboard: %w", err)
	}
	return nil
}

// SendVoice delivers a spoken rendering as a Telegram voice message. The
// backing .ogg artifact is removed before returning, delivered or not.
func (c *Channel) SendVoice(ctx context.Context, respondent string, audio []byte) error {
	chatID, err := parseChatID(respondent)
	if err != nil {
		return err
	}

	path, cleanup, err := writeVoiceArtifact(c.tmpDir, audio)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := c.bot.Send(tgbotapi.NewVoice(chatID, tgbotapi.FilePath(path))); err != nil {
		return fmt.Errorf("telegram: send voice: %w", err)
	}
	return nil
}

// actionKeyboard lays actions out one per row, matching the numbered lists
// in the textual prompts.
func actionKeyboard(actions []prompt.Action) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Token),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// writeVoiceArtifact persists audio to a uniquely-named transient file and
// returns its path with a cleanup function. Cleanup never fails loudly; a
// leftover file is only possible if the process dies mid-turn.
func writeVoiceArtifact(dir string, audio []byte) (string, func(), error) {
	path := filepath.Join(dir, "voice-"+uuid.NewString()+".ogg")
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return "", nil, fmt.Errorf("telegram: write voice artifact: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

func parseChatID(respondent string) (int64, error) {
	id, err := strconv.ParseInt(respondent, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: malformed respondent id %q: %w", respondent, err)
	}
	return id, nil
}

// ChatRespondent renders a chat ID as the engine's respondent identity.
func ChatRespondent(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
