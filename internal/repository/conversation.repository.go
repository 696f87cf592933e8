package repository

import (
	"context"
	"sync"

	"github.com/kantxie-coder/cryptosage/internal/entity"
)

// ConversationStore keeps each user's rolling dialogue history. Every method
// is atomic per user key: appends never interleave mid-entry and Window
// trims and reads in one step, so no caller-side locking is needed.
type ConversationStore interface {
	Append(ctx context.Context, userID int64, message entity.ChatMessage) error
	// Window trims the stored history to the most recent limit entries and
	// returns them oldest first. The trim is permanent: the retained history
	// and the returned window are always the same entries.
	Window(ctx context.Context, userID int64, limit int) ([]entity.ChatMessage, error)
	Clear(ctx context.Context, userID int64) error
}

// ConversationRepository is the in-memory store. History lives for the
// process lifetime only; a restart clears every conversation.
type ConversationRepository struct {
	mu            sync.Mutex
	conversations map[int64][]entity.ChatMessage
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[int64][]entity.ChatMessage),
	}
}

func (r *ConversationRepository) Append(_ context.Context, userID int64, message entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conversations[userID] = append(r.conversations[userID], message)

	return nil
}

func (r *ConversationRepository) Window(_ context.Context, userID int64, limit int) ([]entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.conversations[userID]
	if limit > 0 && len(history) > limit {
		// Copy instead of reslicing so evicted entries do not pin the old
		// backing array.
		trimmed := make([]entity.ChatMessage, limit)
		copy(trimmed, history[len(history)-limit:])
		r.conversations[userID] = trimmed
		history = trimmed
	}

	window := make([]entity.ChatMessage, len(history))
	copy(window, history)

	return window, nil
}

func (r *ConversationRepository) Clear(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conversations, userID)

	return nil
}
