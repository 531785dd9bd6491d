package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/voicesurvey/anketabot-go/internal/engine"
	"github.com/voicesurvey/anketabot-go/speech"
	"github.com/voicesurvey/anketabot-go/speech/openaispeech"
	"github.com/voicesurvey/anketabot-go/survey"
	"github.com/voicesurvey/anketabot-go/survey/formsapi"
	"github.com/voicesurvey/anketabot-go/survey/yamlform"
	"github.com/voicesurvey/anketabot-go/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and poll for updates until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg.LogLevel)

		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("authorize bot: %w", err)
		}

		var source survey.QuestionSource
		if cfg.QuestionsFile != "" {
			log.Info("serving questions from file", slog.String("path", cfg.QuestionsFile))
			source = yamlform.New(cfg.QuestionsFile)
		}

		// Submissions always go to the form service, so FORMS_BASE_URL is
		// required even when questions come from a local file.
		forms, err := formsapi.NewFromEnv()
		if err != nil {
			return err
		}
		if source == nil {
			source = forms
		}

		// Spoken renderings are best-effort: a missing or broken speech
		// configuration downgrades the bot to text-only instead of failing
		// startup.
		var provider speech.Provider
		if !cfg.SpeechDisabled {
			p, err := openaispeech.NewFromEnv()
			if err != nil {
				log.Warn("speech provider unavailable, running text-only", slog.String("err", err.Error()))
			} else {
				provider = p
			}
		}

		channel := telegram.NewChannel(bot, log, cfg.VoiceTmpDir)
		eng := engine.New(channel, source, forms, provider, cfg.FormID, engine.WithLogger(log))
		dispatcher := telegram.NewDispatcher(bot, eng, log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("bot stopped")
		return nil
	},
}
