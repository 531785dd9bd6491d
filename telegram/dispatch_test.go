package telegram

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func chatUpdate(chatID int64, updateID int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		Message:  &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: "x"},
	}
}

func TestEnqueuePreservesPerChatOrder(t *testing.T) {
	d := &Dispatcher{log: slog.Default(), queues: make(map[int64]*updateQueue)}

	var mu sync.Mutex
	applied := map[int64][]int{}
	var wg sync.WaitGroup
	d.handle = func(ctx context.Context, upd tgbotapi.Update) {
		defer wg.Done()
		// Widen any reordering window a bare mutex handoff would leave.
		time.Sleep(time.Millisecond)
		mu.Lock()
		applied[upd.Message.Chat.ID] = append(applied[upd.Message.Chat.ID], upd.UpdateID)
		mu.Unlock()
	}

	const perChat = 25
	chats := []int64{100, 200}
	wg.Add(perChat * len(chats))
	for i := 0; i < perChat; i++ {
		for _, chat := range chats {
			d.enqueue(context.Background(), chatUpdate(chat, i))
		}
	}
	wg.Wait()

	for _, chat := range chats {
		got := applied[chat]
		if len(got) != perChat {
			t.Fatalf("chat %d: applied %d updates, want %d", chat, len(got), perChat)
		}
		for i, id := range got {
			if id != i {
				t.Fatalf("chat %d: update %d applied at slot %d (order %v)", chat, id, i, got)
			}
		}
	}
}

func TestEnqueueDrainerExitsAndRestarts(t *testing.T) {
	d := &Dispatcher{log: slog.Default(), queues: make(map[int64]*updateQueue)}

	var mu sync.Mutex
	var seen []int
	var wg sync.WaitGroup
	d.handle = func(ctx context.Context, upd tgbotapi.Update) {
		defer wg.Done()
		mu.Lock()
		seen = append(seen, upd.UpdateID)
		mu.Unlock()
	}

	wg.Add(1)
	d.enqueue(context.Background(), chatUpdate(7, 0))
	wg.Wait()

	// The drainer must have released the queue; a later burst still applies.
	wg.Add(2)
	d.enqueue(context.Background(), chatUpdate(7, 1))
	d.enqueue(context.Background(), chatUpdate(7, 2))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, id := range seen {
		if id != i {
			t.Fatalf("updates applied out of order: %v", seen)
		}
	}
}

func TestUpdateChatID(t *testing.T) {
	if id, ok := updateChatID(chatUpdate(42, 0)); !ok || id != 42 {
		t.Fatalf("message update: got (%d, %v)", id, ok)
	}
	cb := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 43}},
	}}
	if id, ok := updateChatID(cb); !ok || id != 43 {
		t.Fatalf("callback update: got (%d, %v)", id, ok)
	}
	if _, ok := updateChatID(tgbotapi.Update{}); ok {
		t.Fatal("empty update must report no chat")
	}
}
