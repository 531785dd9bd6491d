package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voicesurvey/anketabot-go/internal/logctx"
)

// Config is the app-level configuration; gateway-specific settings live in
// the respective package Configs and are decoded by their NewFromEnv
// constructors.
type Config struct {
	// TelegramToken authorizes the bot. ENV: TELEGRAM_TOKEN
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`
	// FormID selects the active questionnaire. ENV: FORM_ID
	FormID string `env:"FORM_ID,required"`
	// QuestionsFile, when set, serves questions from a local YAML file
	// instead of the form service. Submissions still go to the form
	// service. ENV: QUESTIONS_FILE
	QuestionsFile string `env:"QUESTIONS_FILE"`
	// VoiceTmpDir holds transient voice artifacts. ENV: VOICE_TMP_DIR
	VoiceTmpDir string `env:"VOICE_TMP_DIR"`
	// SpeechDisabled turns off spoken renderings and voice answers.
	// ENV: SPEECH_DISABLED
	SpeechDisabled bool `env:"SPEECH_DISABLED,default=false"`
	// LogLevel is one of debug, info, warn, error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

var rootCmd = &cobra.Command{
	Use:           "anketabot",
	Short:         "Voice-accessible questionnaire bot for Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(questionsCmd)
}

// loadConfig pulls the app Config from the environment, reading a .env file
// first when one exists.
func loadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the app logger with context decoration and installs it as
// the slog default.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	log := slog.New(logctx.Handler{
		Handler: slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	})
	slog.SetDefault(log)
	return log
}
