package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/voicesurvey/anketabot-go/internal/engine"
)

// maxVoiceBytes caps inbound voice-note downloads. Telegram voice notes are
// far smaller; the cap only guards against a misbehaving file endpoint.
const maxVoiceBytes = 20 << 20

// Dispatcher receives Telegram updates over long polling and routes each one
// to the engine. Updates for the same chat are applied strictly in arrival
// order through a per-chat queue; different chats drain on independent
// goroutines and never block each other.
type Dispatcher struct {
	bot    *tgbotapi.BotAPI
	engine *engine.Engine
	log    *slog.Logger
	httpc  *http.Client

	handle func(ctx context.Context, upd tgbotapi.Update)

	queueMu sync.Mutex
	queues  map[int64]*updateQueue
}

// updateQueue holds the pending updates of one chat. running is true while a
// drainer goroutine owns the queue.
type updateQueue struct {
	pending []tgbotapi.Update
	running bool
}

func NewDispatcher(bot *tgbotapi.BotAPI, eng *engine.Engine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		bot:    bot,
		engine: eng,
		log:    log,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		queues: make(map[int64]*updateQueue),
	}
	d.handle = d.dispatch
	return d
}

// Run polls for updates until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := d.bot.GetUpdatesChan(cfg)

	d.log.InfoContext(ctx, "bot polling started", slog.String("username", d.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			d.bot.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			d.enqueue(ctx, upd)
		}
	}
}

// enqueue appends the update to its chat's queue and starts a drainer when
// none is running. Appends happen from the single polling loop, so per-chat
// FIFO holds even for rapid bursts from one respondent. Chat-less updates have
// no ordering to preserve and run on their own goroutine.
func (d *Dispatcher) enqueue(ctx context.Context, upd tgbotapi.Update) {
	chatID, ok := updateChatID(upd)
	if !ok {
		go d.handle(ctx, upd)
		return
	}

	d.queueMu.Lock()
	q, found := d.queues[chatID]
	if !found {
		q = &updateQueue{}
		d.queues[chatID] = q
	}
	q.pending = append(q.pending, upd)
	start := !q.running
	if start {
		q.running = true
	}
	d.queueMu.Unlock()

	if start {
		go d.drain(ctx, q)
	}
}

// drain applies one chat's pending updates in order and exits once the queue
// is empty.
func (d *Dispatcher) drain(ctx context.Context, q *updateQueue) {
	for {
		d.queueMu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			d.queueMu.Unlock()
			return
		}
		upd := q.pending[0]
		q.pending = q.pending[1:]
		d.queueMu.Unlock()

		d.handle(ctx, upd)
	}
}

func updateChatID(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	}
	return 0, false
}

// dispatch handles one update to completion. A panic from any layer is
// confined to this update.
func (d *Dispatcher) dispatch(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorContext(ctx, "panic while handling update", slog.Any("panic", r))
		}
	}()

	var err error
	switch {
	case upd.CallbackQuery != nil:
		err = d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Voice != nil:
		err = d.handleVoice(ctx, upd.Message)
	case upd.Message != nil && upd.Message.IsCommand():
		err = d.handleCommand(ctx, upd.Message)
	case upd.Message != nil && upd.Message.Text != "":
		err = d.engine.HandleText(ctx, ChatRespondent(upd.Message.Chat.ID), upd.Message.Text)
	default:
		return
	}
	if err != nil {
		d.log.ErrorContext(ctx, "turn failed", slog.String("err", err.Error()))
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	respondent := ChatRespondent(msg.Chat.ID)
	switch msg.Command() {
	case "start", "home":
		return d.engine.ShowHome(ctx, respondent, firstName(msg.From))
	default:
		return d.engine.HandleText(ctx, respondent, msg.Text)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	// Acknowledge first so the client stops its spinner even if the turn
	// fails afterwards.
	if _, err := d.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		d.log.WarnContext(ctx, "callback ack failed", slog.String("err", err.Error()))
	}
	if cq.Message == nil {
		return nil
	}
	respondent := ChatRespondent(cq.Message.Chat.ID)
	return d.engine.HandleCallback(ctx, respondent, firstName(cq.From), cq.Data)
}

func (d *Dispatcher) handleVoice(ctx context.Context, msg *tgbotapi.Message) error {
	audio, err := d.downloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		// Treated like a failed recognition: nothing recorded, the engine
		// asks the respondent to retry.
		d.log.WarnContext(ctx, "voice download failed", slog.String("err", err.Error()))
		return d.engine.HandleVoice(ctx, ChatRespondent(msg.Chat.ID), nil)
	}
	return d.engine.HandleVoice(ctx, ChatRespondent(msg.Chat.ID), audio)
}

func (d *Dispatcher) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := d.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("telegram: resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: build file request: %w", err)
	}
	res, err := d.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: fetch file: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: fetch file: unexpected status %d", res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxVoiceBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram: read file: %w", err)
	}
	return data, nil
}

func firstName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.FirstName
}
