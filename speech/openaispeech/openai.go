package openaispeech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voicesurvey/anketabot-go/speech"
)

// Config for the OpenAI-backed speech provider. Defaults can be loaded via
// envdecode.
type Config struct {
	// APIKey authenticates against the OpenAI API. ENV: OPENAI_API_KEY
	APIKey string `env:"OPENAI_API_KEY,required"`
	// TTSModel used for synthesis. ENV: SPEECH_TTS_MODEL
	TTSModel string `env:"SPEECH_TTS_MODEL,default=tts-1"`
	// Voice used for synthesis. ENV: SPEECH_TTS_VOICE
	Voice string `env:"SPEECH_TTS_VOICE,default=alloy"`
	// STTModel used for transcription. ENV: SPEECH_STT_MODEL
	STTModel string `env:"SPEECH_STT_MODEL,default=whisper-1"`
	// Language biases transcription. ENV: SPEECH_LANGUAGE
	Language string `env:"SPEECH_LANGUAGE,default=ru"`
	// Timeout bounds each provider call. ENV: SPEECH_TIMEOUT
	Timeout time.Duration `env:"SPEECH_TIMEOUT,default=30s"`
}

// Provider is an OpenAI-backed speech.Provider.
type Provider struct {
	client openai.Client
	cfg    Config
}

var _ speech.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openaispeech: api key required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Provider{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
	}, nil
}

// NewFromEnv builds a Provider using envdecode to populate Config.
func NewFromEnv() (*Provider, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("openaispeech: decode config: %w", err)
	}
	return New(cfg)
}

// Synthesize renders text as an OGG/Opus clip suitable for a Telegram voice
// message.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	res, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.cfg.TTSModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(p.cfg.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatOpus,
	})
	if err != nil {
		return nil, fmt.Errorf("openaispeech: synthesize: %w", err)
	}
	defer res.Body.Close()
	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("openaispeech: read synthesized audio: %w", err)
	}
	return audio, nil
}

// Recognize transcribes a voice clip. Provider failures and empty transcripts
// both surface as speech.ErrRecognitionFailed so the engine can re-prompt.
func (p *Provider) Recognize(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	tr, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
		Model:    openai.AudioModel(p.cfg.STTModel),
		Language: openai.String(p.cfg.Language),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", speech.ErrRecognitionFailed, err)
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return "", speech.ErrRecognitionFailed
	}
	return text, nil
}
