// Package speech defines the speech provider contract consumed by the engine:
// text-to-speech for spoken prompt renderings and speech-to-text for voice
// answers. Synthesis is best-effort — a failed spoken rendering never blocks
// the required text rendering — while a failed or empty recognition is
// reported to the respondent and records nothing.
//
// Implementations
//
//	openaispeech : OpenAI audio API (tts synthesis + whisper transcription)
package speech
