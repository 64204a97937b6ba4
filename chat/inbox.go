package chat

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoConversationSelected is returned by Send when no peer is selected.
var ErrNoConversationSelected = errors.New("no conversation selected")

// Inbox is the session-scoped composition root of the messaging core: it owns
// the store, the history loader and the live channel, and binds the currently
// selected peer to the aggregator's read models and to the channel's send
// target. It holds no derived state of its own; both read models are
// recomputed from the store on every call.
type Inbox struct {
	mu          sync.Mutex
	session     *Session
	store       *Store
	history     *HistoryLoader
	channel     *LiveChannel
	selected    uint
	loadedToken string
	log         *zap.SugaredLogger
}

// NewInbox wires a fresh messaging core for one session. apiBaseURL and
// wsBaseURL parameterize the two transports; neither is hardcoded.
func NewInbox(apiBaseURL, wsBaseURL string, session *Session, logger *zap.SugaredLogger) *Inbox {
	store := NewStore()
	return &Inbox{
		session: session,
		store:   store,
		history: NewHistoryLoader(apiBaseURL, logger),
		channel: NewLiveChannel(wsBaseURL, session, store, logger),
		log:     logger,
	}
}

// Store exposes the underlying message store, mainly so owners can hook
// OnChange for re-render scheduling.
func (i *Inbox) Store() *Store {
	return i.store
}

// Channel exposes the live channel for state inspection.
func (i *Inbox) Channel() *LiveChannel {
	return i.channel
}

// Connect opens the live channel for the session credential.
func (i *Inbox) Connect(ctx context.Context) error {
	return i.channel.Open(ctx)
}

// LoadHistory populates the store from the durable log, once per credential:
// a repeat call under the same token is a no-op, and a credential change
// (re-login) triggers a fresh load. The live channel may already be
// delivering while this runs; idempotent ingest makes the interleaving safe.
func (i *Inbox) LoadHistory(ctx context.Context) error {
	token := i.session.Token()
	if token == "" {
		return ErrNoCredential
	}

	i.mu.Lock()
	if i.loadedToken == token {
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	if err := i.history.Load(ctx, i.session, i.store); err != nil {
		return err
	}

	i.mu.Lock()
	i.loadedToken = token
	i.mu.Unlock()
	return nil
}

// SelectPeer switches the active conversation. The store is never cleared on
// a selection change; only the derived thread changes.
func (i *Inbox) SelectPeer(peerID uint) {
	i.mu.Lock()
	i.selected = peerID
	i.mu.Unlock()
}

// SelectedPeer returns the current conversation target, zero if none.
func (i *Inbox) SelectedPeer() uint {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.selected
}

// Conversations derives the inbox list, newest conversation first.
func (i *Inbox) Conversations() []Conversation {
	return Conversations(i.store.All(), i.session.UserID())
}

// ActiveThread derives the chronological message list for the selected peer.
// No selection or an unknown peer yields an empty thread.
func (i *Inbox) ActiveThread() []ThreadMessage {
	i.mu.Lock()
	peer := i.selected
	i.mu.Unlock()
	if peer == 0 {
		return []ThreadMessage{}
	}
	return Thread(i.store.All(), i.session.UserID(), peer)
}

// Send delivers text to the selected peer over the live channel. The message
// enters the store only via the server's echo frame; there is no optimistic
// entry to reconcile or drop on failure.
func (i *Inbox) Send(text string) error {
	i.mu.Lock()
	peer := i.selected
	i.mu.Unlock()
	if peer == 0 {
		return ErrNoConversationSelected
	}
	return i.channel.Send(peer, text)
}

// Close tears the live channel down deterministically. After it returns no
// further events are ingested. The store itself is simply dropped with the
// inbox; a new login builds a fresh one.
func (i *Inbox) Close() {
	i.channel.Close()
}
