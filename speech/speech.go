package speech

import (
	"context"
	"errors"
)

// ErrRecognitionFailed indicates speech could not be transcribed, either
// because the provider call failed or because it produced an empty
// transcript. The turn records nothing and the respondent is asked to retry
// or type instead.
var ErrRecognitionFailed = errors.New("speech: recognition failed")

// Provider converts between text and audio. Both calls are single bounded
// requests; implementations apply a timeout and surface it as a normal error.
type Provider interface {
	// Synthesize renders text as a playable audio clip (OGG/Opus for the
	// Telegram channel). Failure degrades gracefully at the call site.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Recognize transcribes a voice clip. An empty transcript is an error
	// (ErrRecognitionFailed), never an empty answer.
	Recognize(ctx context.Context, audio []byte) (string, error)
}
