// Package telegram adapts the Telegram Bot API to the engine's messaging
// channel contract and drives the inbound update loop: long polling, command
// handling, voice-file retrieval, and callback acknowledgement. Respondents
// are identified by their chat ID rendered as a decimal string.
//
// Spoken prompts are delivered as voice messages backed by temporary .ogg
// files: each artifact is created just before delivery and removed right
// after, success or not, so local storage never grows.
package telegram
