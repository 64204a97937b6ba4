package chat

import (
	"sync"

	"github.com/unimarket/unimarket-chat/models"
)

// Store is the append-only client cache of message records, keyed by the
// server-assigned id. History and live events both write into it; the
// idempotent ingest is what makes their interleaving safe regardless of
// arrival order. Messages are never mutated or deleted; the store lives for
// one authenticated session and is discarded on logout.
type Store struct {
	mu       sync.RWMutex
	messages map[uint]models.Message
	order    []uint

	// OnChange, when set, is invoked after any mutation that added at least
	// one message. Called outside the lock.
	OnChange func()
}

func NewStore() *Store {
	return &Store{
		messages: make(map[uint]models.Message),
	}
}

// Ingest adds one message. A message whose id is already present is a no-op;
// a message without a server-assigned id is rejected outright, since every
// frame the server emits carries one.
func (s *Store) Ingest(msg models.Message) {
	if msg.ID == 0 {
		return
	}
	s.mu.Lock()
	_, exists := s.messages[msg.ID]
	if !exists {
		s.messages[msg.ID] = msg
		s.order = append(s.order, msg.ID)
	}
	s.mu.Unlock()

	if !exists && s.OnChange != nil {
		s.OnChange()
	}
}

// IngestBatch adds many messages under a single lock acquisition, so no
// reader ever observes a partially loaded history.
func (s *Store) IngestBatch(msgs []models.Message) {
	added := false
	s.mu.Lock()
	for _, msg := range msgs {
		if msg.ID == 0 {
			continue
		}
		if _, exists := s.messages[msg.ID]; exists {
			continue
		}
		s.messages[msg.ID] = msg
		s.order = append(s.order, msg.ID)
		added = true
	}
	s.mu.Unlock()

	if added && s.OnChange != nil {
		s.OnChange()
	}
}

// All returns an owned snapshot in insertion order. Callers may sort or
// filter it freely without affecting the store.
func (s *Store) All() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.messages[id])
	}
	return out
}

// Len reports the number of distinct messages held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
