package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talenthub/backend/internal/chat"
	"github.com/talenthub/backend/internal/models"
)

func TestMessageFeedDeliversInitialSnapshotAndUpdates(t *testing.T) {
	window := []models.ChatMessage{{ID: "a"}}
	loads := 0
	feed := newMessageFeed(func(_ context.Context, _ int64, ascending bool) ([]models.ChatMessage, error) {
		loads++
		if !ascending {
			t.Fatalf("expected ascending load")
		}
		return window, nil
	})

	var received [][]models.ChatMessage
	unsubscribe, err := feed.subscribe(context.Background(), 9, chat.OrderAsc, func(messages []models.ChatMessage) {
		received = append(received, messages)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	window = []models.ChatMessage{{ID: "a"}, {ID: "b"}}
	feed.publish(context.Background(), 9)
	feed.publish(context.Background(), 10)

	if len(received) != 2 || len(received[1]) != 2 {
		t.Fatalf("expected initial and updated snapshot, got %+v", received)
	}
	if loads != 2 {
		t.Fatalf("expected 2 loads, got %d", loads)
	}

	unsubscribe()
	unsubscribe()
	feed.publish(context.Background(), 9)

	if len(received) != 2 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", len(received))
	}
	if feed.subscriberCount(9) != 0 {
		t.Fatalf("expected subscriber to be removed")
	}
}

func TestMessageFeedSubscribeFailsWhenLoadFails(t *testing.T) {
	feed := newMessageFeed(func(context.Context, int64, bool) ([]models.ChatMessage, error) {
		return nil, errors.New("db down")
	})

	_, err := feed.subscribe(context.Background(), 1, chat.OrderDesc, func([]models.ChatMessage) {})
	if err == nil {
		t.Fatal("expected subscribe error")
	}
	if feed.subscriberCount(1) != 0 {
		t.Fatal("expected failed subscriber to be removed")
	}
}

func TestMessageFeedLoadsOncePerOrder(t *testing.T) {
	loads := map[bool]int{}
	feed := newMessageFeed(func(_ context.Context, _ int64, ascending bool) ([]models.ChatMessage, error) {
		loads[ascending]++
		return nil, nil
	})

	for _, order := range []chat.Order{chat.OrderAsc, chat.OrderAsc, chat.OrderDesc} {
		if _, err := feed.subscribe(context.Background(), 3, order, func([]models.ChatMessage) {}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	loads = map[bool]int{}

	feed.publish(context.Background(), 3)

	if loads[true] != 1 || loads[false] != 1 {
		t.Fatalf("expected one load per order, got %+v", loads)
	}
}

func TestMessageFeedSlowConversationDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	feed := newMessageFeed(func(_ context.Context, conversationID int64, _ bool) ([]models.ChatMessage, error) {
		if conversationID == 1 {
			close(started)
			<-release
		}
		return nil, nil
	})

	slowDone := make(chan error, 1)
	go func() {
		_, err := feed.subscribe(context.Background(), 1, chat.OrderAsc, func([]models.ChatMessage) {})
		slowDone <- err
	}()
	<-started

	fastDone := make(chan error, 1)
	go func() {
		_, err := feed.subscribe(context.Background(), 2, chat.OrderAsc, func([]models.ChatMessage) {})
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("subscribe conversation 2: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("subscribe on conversation 2 waited for conversation 1")
	}

	close(release)
	if err := <-slowDone; err != nil {
		t.Fatalf("subscribe conversation 1: %v", err)
	}

	feed.mu.Lock()
	remaining := len(feed.locks)
	feed.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected delivery locks to be released, got %d", remaining)
	}
}
