package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/talenthub/backend/internal/models"
)

type stubStore struct {
	mu           sync.Mutex
	initial      []models.ChatMessage
	onData       func([]models.ChatMessage)
	subscribeErr error
	unsubscribed int
	appendErr    error
	appended     []Draft
	onAppend     func()
	updateErr    error
	updates      []MessageFields
	onUpdate     func()
}

func (s *stubStore) Subscribe(_ context.Context, _ int64, _ Order, onData func([]models.ChatMessage)) (func(), error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.mu.Lock()
	s.onData = onData
	s.mu.Unlock()
	onData(s.initial)
	return func() {
		s.mu.Lock()
		s.unsubscribed++
		s.mu.Unlock()
	}, nil
}

func (s *stubStore) AppendMessage(_ context.Context, _ int64, draft Draft, _ time.Time) (string, error) {
	if s.onAppend != nil {
		s.onAppend()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return "", s.appendErr
	}
	s.appended = append(s.appended, draft)
	return "new-id", nil
}

func (s *stubStore) UpdateMessageFields(_ context.Context, _ int64, _ string, fields MessageFields) error {
	if s.onUpdate != nil {
		s.onUpdate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, fields)
	return nil
}

func (s *stubStore) push(messages []models.ChatMessage) {
	s.mu.Lock()
	onData := s.onData
	s.mu.Unlock()
	onData(messages)
}

type stubDirectory struct {
	entries map[int64]models.DirectoryEntry
}

func (d *stubDirectory) GetUser(_ context.Context, userID int64) (*models.DirectoryEntry, error) {
	entry, ok := d.entries[userID]
	if !ok {
		return nil, errors.New("no such user")
	}
	return &entry, nil
}

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	notices   []Notice
}

func (r *recorder) render(s Snapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, s)
	r.mu.Unlock()
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func newTestView(store *stubStore, rec *recorder) *View {
	conversation := models.Conversation{
		ID:           7,
		Type:         models.ConversationIndividual,
		Participants: []int64{1, 2},
	}
	return NewView(conversation, Viewer{UserID: 1, Location: time.UTC}, ViewConfig{
		Store:     store,
		Directory: &stubDirectory{entries: map[int64]models.DirectoryEntry{2: {UserID: 2, DisplayName: "Ada"}}},
		Notifier:  rec,
		OnRender:  rec.render,
		Now: func() time.Time {
			return time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)
		},
	})
}

func sampleMessages() []models.ChatMessage {
	return []models.ChatMessage{
		{ID: "m1", SenderID: 2, Content: "hello", Reactions: models.Reactions{"👍": {"2"}}, CreatedAt: time.Date(2025, 9, 14, 9, 0, 0, 0, time.UTC)},
	}
}

func TestViewOpenRendersInitialSnapshot(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	rec := &recorder{}
	view := newTestView(store, rec)
	defer view.Close()

	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.renderCount() != 1 {
		t.Fatalf("expected one render, got %d", rec.renderCount())
	}
	snapshot := view.Render()
	if snapshot.ConversationID != 7 || len(snapshot.Items) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.Items[0].Separator.Label != "Today" {
		t.Fatalf("expected Today separator, got %q", snapshot.Items[0].Separator.Label)
	}
}

func TestViewOpenFailsWhenSubscribeFails(t *testing.T) {
	store := &stubStore{subscribeErr: errors.New("offline")}
	view := newTestView(store, &recorder{})

	if err := view.Open(context.Background()); err == nil {
		t.Fatal("expected subscribe error")
	}
	view.Close()
}

func TestViewSendClearsComposerOnSuccess(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	rec := &recorder{}
	view := newTestView(store, rec)
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	replyTo := "m1"
	view.SetComposer("  <p>On it</p> ", &replyTo)

	if err := view.Send(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(store.appended) != 1 {
		t.Fatalf("expected one append, got %d", len(store.appended))
	}
	draft := store.appended[0]
	if draft.Content != "<p>On it</p>" || draft.SenderID != 1 || draft.ReplyTo == nil || *draft.ReplyTo != "m1" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if composer := view.Composer(); composer.Content != "" || composer.ReplyTo != nil {
		t.Fatalf("expected cleared composer, got %+v", composer)
	}
	if view.Sending() {
		t.Fatal("expected sending flag to be cleared")
	}
}

func TestViewSendKeepsComposerOnFailure(t *testing.T) {
	store := &stubStore{initial: sampleMessages(), appendErr: errors.New("network down")}
	rec := &recorder{}
	view := newTestView(store, rec)
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	view.SetComposer("draft", nil)

	if err := view.Send(context.Background()); err == nil {
		t.Fatal("expected send error")
	}

	if view.Composer().Content != "draft" {
		t.Fatalf("expected composer to be kept, got %+v", view.Composer())
	}
	if view.Sending() {
		t.Fatal("expected sending flag to be cleared after failure")
	}
	if rec.noticeCount() != 1 || rec.notices[0].Message != "Failed to send message" {
		t.Fatalf("expected one failure notice, got %+v", rec.notices)
	}
}

func TestViewSendRejectsDuplicateSubmission(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	view := newTestView(store, &recorder{})
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	var inFlight, nested error
	store.onAppend = func() {
		if !view.Sending() {
			inFlight = errors.New("sending flag not set")
		}
		nested = view.Send(context.Background())
	}
	view.SetComposer("once", nil)

	if err := view.Send(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if inFlight != nil {
		t.Fatal(inFlight)
	}
	if !errors.Is(nested, ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", nested)
	}
	if len(store.appended) != 1 {
		t.Fatalf("expected a single append, got %d", len(store.appended))
	}
}

func TestViewSendRejectsEmptyComposer(t *testing.T) {
	store := &stubStore{}
	view := newTestView(store, &recorder{})
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	view.SetComposer("   ", nil)

	if err := view.Send(context.Background()); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestViewToggleReactionSubmitsFullMap(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	view := newTestView(store, &recorder{})
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := view.ToggleReaction(context.Background(), "m1", "🎉"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(store.updates))
	}
	submitted := store.updates[0].Reactions
	if len(submitted["👍"]) != 1 || submitted["👍"][0] != "2" {
		t.Fatalf("expected unrelated emoji to be kept, got %+v", submitted)
	}
	if len(submitted["🎉"]) != 1 || submitted["🎉"][0] != "1" {
		t.Fatalf("expected viewer reaction, got %+v", submitted)
	}
	change := store.updates[0].Reaction
	if change == nil || change.Emoji != "🎉" || change.UserID != "1" || !change.Present {
		t.Fatalf("expected the added reaction to be named, got %+v", change)
	}
	if !HasReacted(view.Messages()[0].Reactions, "🎉", "1") {
		t.Fatal("expected optimistic reaction to stay applied")
	}
}

func TestViewToggleReactionRollsBackOnFailure(t *testing.T) {
	store := &stubStore{initial: sampleMessages(), updateErr: errors.New("permission denied")}
	rec := &recorder{}
	view := newTestView(store, rec)
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := view.ToggleReaction(context.Background(), "m1", "👍"); err == nil {
		t.Fatal("expected update error")
	}

	reactions := view.Messages()[0].Reactions
	if len(reactions) != 1 || len(reactions["👍"]) != 1 || reactions["👍"][0] != "2" {
		t.Fatalf("expected reactions to be rolled back, got %+v", reactions)
	}
	if rec.noticeCount() != 1 {
		t.Fatalf("expected a failure notice, got %d", rec.noticeCount())
	}
}

func TestViewToggleReactionFailureKeepsNewerSnapshot(t *testing.T) {
	store := &stubStore{initial: sampleMessages(), updateErr: errors.New("permission denied")}
	rec := &recorder{}
	view := newTestView(store, rec)
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	fresh := sampleMessages()
	fresh[0].Reactions = models.Reactions{"👍": {"2"}, "❤": {"3"}}
	store.onUpdate = func() { store.push(fresh) }

	if err := view.ToggleReaction(context.Background(), "m1", "🎉"); err == nil {
		t.Fatal("expected update error")
	}

	reactions := view.Messages()[0].Reactions
	if !sameReactions(reactions, models.Reactions{"👍": {"2"}, "❤": {"3"}}) {
		t.Fatalf("expected store snapshot to win over the failed toggle, got %+v", reactions)
	}
	if rec.noticeCount() != 1 {
		t.Fatalf("expected a failure notice, got %d", rec.noticeCount())
	}
}

func TestViewToggleReactionUnknownMessage(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	view := newTestView(store, &recorder{})
	defer view.Close()
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := view.ToggleReaction(context.Background(), "missing", "👍"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Fatalf("expected no update, got %d", len(store.updates))
	}
}

func TestViewCloseUnsubscribesAndStopsRendering(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	rec := &recorder{}
	view := newTestView(store, rec)
	view.cfg.RefreshInterval = time.Hour
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	view.Close()
	view.Close()

	if store.unsubscribed != 1 {
		t.Fatalf("expected one unsubscribe, got %d", store.unsubscribed)
	}
	before := rec.renderCount()
	store.push(sampleMessages())
	if rec.renderCount() != before {
		t.Fatal("expected no render after close")
	}
	if err := view.Send(context.Background()); !errors.Is(err, ErrViewClosed) {
		t.Fatalf("expected ErrViewClosed, got %v", err)
	}
}

func TestViewRefreshTickerRerenders(t *testing.T) {
	store := &stubStore{initial: sampleMessages()}
	rec := &recorder{}
	view := newTestView(store, rec)
	view.cfg.RefreshInterval = 5 * time.Millisecond
	if err := view.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer view.Close()

	deadline := time.Now().Add(2 * time.Second)
	for rec.renderCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected ticker renders, got %d", rec.renderCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
