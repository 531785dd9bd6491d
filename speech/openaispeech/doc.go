// Package openaispeech implements speech.Provider on the OpenAI audio API:
// tts synthesis for spoken prompt renderings and whisper transcription for
// inbound voice clips. Both operations are single bounded HTTP requests with
// a configurable timeout; Config can be populated from the environment via
// NewFromEnv.
package openaispeech
