package services

import (
	"context"
	"log"
	"sync"

	"github.com/talenthub/backend/internal/chat"
	"github.com/talenthub/backend/internal/models"
)

type windowLoader func(ctx context.Context, conversationID int64, ascending bool) ([]models.ChatMessage, error)

type feedSubscriber struct {
	order   chat.Order
	deliver func([]models.ChatMessage)
}

type deliveryLock struct {
	mu   sync.Mutex
	refs int
}

// messageFeed fans conversation snapshots out to in-process subscribers.
// Deliveries within a conversation are serialized so a subscriber never sees
// an older snapshot after a newer one.
type messageFeed struct {
	load windowLoader

	mu     sync.Mutex
	nextID int
	subs   map[int64]map[int]feedSubscriber
	locks  map[int64]*deliveryLock
}

func newMessageFeed(load windowLoader) *messageFeed {
	return &messageFeed{
		load:  load,
		subs:  make(map[int64]map[int]feedSubscriber),
		locks: make(map[int64]*deliveryLock),
	}
}

// lockConversation holds the delivery lock of one conversation until the
// returned func is called.
func (f *messageFeed) lockConversation(conversationID int64) func() {
	f.mu.Lock()
	lock, ok := f.locks[conversationID]
	if !ok {
		lock = &deliveryLock{}
		f.locks[conversationID] = lock
	}
	lock.refs++
	f.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		f.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(f.locks, conversationID)
		}
		f.mu.Unlock()
	}
}

func (f *messageFeed) subscribe(
	ctx context.Context,
	conversationID int64,
	order chat.Order,
	deliver func([]models.ChatMessage),
) (func(), error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	set, ok := f.subs[conversationID]
	if !ok {
		set = make(map[int]feedSubscriber)
		f.subs[conversationID] = set
	}
	set[id] = feedSubscriber{order: order, deliver: deliver}
	f.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if set, ok := f.subs[conversationID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(f.subs, conversationID)
				}
			}
		})
	}

	unlock := f.lockConversation(conversationID)
	defer unlock()

	messages, err := f.load(ctx, conversationID, order == chat.OrderAsc)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	deliver(messages)

	return unsubscribe, nil
}

// publish reloads the conversation window and pushes it to every subscriber.
func (f *messageFeed) publish(ctx context.Context, conversationID int64) {
	unlock := f.lockConversation(conversationID)
	defer unlock()

	f.mu.Lock()
	subscribers := make([]feedSubscriber, 0, len(f.subs[conversationID]))
	for _, sub := range f.subs[conversationID] {
		subscribers = append(subscribers, sub)
	}
	f.mu.Unlock()

	if len(subscribers) == 0 {
		return
	}

	windows := make(map[chat.Order][]models.ChatMessage, 2)
	for _, sub := range subscribers {
		messages, ok := windows[sub.order]
		if !ok {
			var err error
			messages, err = f.load(ctx, conversationID, sub.order == chat.OrderAsc)
			if err != nil {
				log.Printf("chat feed reload conversation %d: %v", conversationID, err)
				return
			}
			windows[sub.order] = messages
		}
		sub.deliver(messages)
	}
}

func (f *messageFeed) subscriberCount(conversationID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[conversationID])
}
