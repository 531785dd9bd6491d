// Package logctx decorates slog records with turn and session attributes
// carried in the context, so every log line emitted while processing an
// inbound utterance identifies the respondent and turn without threading
// loggers through call sites.
package logctx

import (
	"context"
	"log/slog"
)

type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if td, ok := ctx.Value(turnDataKey{}).(*TurnData); ok {
		r.AddAttrs(slog.Group("turn",
			slog.String("id", td.TurnID),
			slog.String("respondent", td.Respondent),
			slog.String("input", td.InputKind),
		))
	}

	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("form_id", sd.FormID),
			slog.String("mode", sd.Mode),
			slog.Int("position", sd.Position),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type turnDataKey struct{}

// TurnData identifies one inbound utterance and its processing.
type TurnData struct {
	TurnID     string
	Respondent string
	InputKind  string // "text", "voice", or "callback"
}

func WithTurnData(ctx context.Context, data *TurnData) context.Context {
	return context.WithValue(ctx, turnDataKey{}, data)
}

type sessionDataKey struct{}

// SessionData identifies the live session a turn is mutating.
type SessionData struct {
	FormID   string
	Mode     string
	Position int
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}
