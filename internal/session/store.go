// Package session tracks the pending multi-turn operation of each
// chat: which conversational step the chat is in and the reminder ids
// that step refers to. At most one operation is live per chat; starting
// a new one overwrites the old (last write wins).
package session

import (
	"sync"
	"time"
)

type Kind int

const (
	AwaitingDeleteID Kind = iota + 1
	AwaitingDeleteConfirm
	AwaitingDeleteAllConfirm
	AwaitingEditID
	AwaitingEditText
	AwaitingRecurringConfirm
)

// Operation is the pending multi-turn state of one chat.
type Operation struct {
	Kind       Kind
	ReminderID int64     // selected target (confirm steps)
	Candidates []int64   // valid ids offered at an id-selection step
	ExpiresAt  time.Time // zero = no expiry
}

type Store struct {
	mu  sync.RWMutex
	ops map[int64]*Operation
}

func NewStore() *Store {
	return &Store{ops: make(map[int64]*Operation)}
}

// Set installs op as the chat's pending operation, replacing any
// previous one.
func (s *Store) Set(chatID int64, op *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[chatID] = op
}

// SetWithTTL installs op and lets it silently expire after ttl.
func (s *Store) SetWithTTL(chatID int64, op *Operation, ttl time.Duration) {
	op.ExpiresAt = time.Now().Add(ttl)
	s.Set(chatID, op)
}

// Get returns the chat's live pending operation, or nil. Expired
// operations are dropped on access, reverting the chat to idle without
// any message.
func (s *Store) Get(chatID int64) *Operation {
	s.mu.RLock()
	op, ok := s.ops[chatID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if !op.ExpiresAt.IsZero() && time.Now().After(op.ExpiresAt) {
		s.Clear(chatID)
		return nil
	}
	return op
}

func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, chatID)
}
