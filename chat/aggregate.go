package chat

import (
	"sort"

	"github.com/unimarket/unimarket-chat/models"
)

// PreviewLength is the display budget for a conversation's last-message
// preview; longer previews are cut and marked with an ellipsis.
const PreviewLength = 50

// Conversation is the derived inbox entry for one peer: their identity, the
// latest message exchanged with them and a preview of it. Never persisted;
// recomputed from the store on demand.
type Conversation struct {
	PeerID        uint           `json:"peer_id"`
	PeerName      string         `json:"peer_name"`
	PeerAvatar    string         `json:"peer_avatar"`
	Preview       string         `json:"preview"`
	LatestMessage models.Message `json:"latest_message"`
}

// ThreadMessage is one entry of an active thread with the viewer's role
// computed, not stored.
type ThreadMessage struct {
	models.Message
	IsSender bool `json:"is_sender"`
}

// Conversations derives the inbox list from a flat message snapshot: one
// entry per distinct peer carrying that peer's latest message, sorted newest
// first. Duplicates cannot skew recency because the store already collapsed
// them by id. On equal timestamps the message encountered later in the
// snapshot wins; snapshot order is store insertion order.
func Conversations(msgs []models.Message, localUser uint) []Conversation {
	latest := make(map[uint]models.Message)
	for _, m := range msgs {
		peer := m.Peer(localUser)
		prev, ok := latest[peer]
		if !ok || !m.Timestamp.Before(prev.Timestamp) {
			latest[peer] = m
		}
	}

	conversations := make([]Conversation, 0, len(latest))
	for peer, m := range latest {
		conversations = append(conversations, Conversation{
			PeerID:        peer,
			PeerName:      m.PeerName(localUser),
			PeerAvatar:    m.PeerProfilePicture(localUser),
			Preview:       preview(m, localUser),
			LatestMessage: m,
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LatestMessage.Timestamp.After(conversations[j].LatestMessage.Timestamp)
	})
	return conversations
}

// Thread derives the chronological message list for one conversation: every
// message where the given peer is on either side, ascending by timestamp.
// History-loaded and live messages merge here purely by sorting at read time.
// An unknown peer yields an empty thread, not an error.
func Thread(msgs []models.Message, localUser, peer uint) []ThreadMessage {
	filtered := make([]ThreadMessage, 0)
	for _, m := range msgs {
		if m.Sender == peer || m.Receiver == peer {
			filtered = append(filtered, ThreadMessage{
				Message:  m,
				IsSender: m.IsSender(localUser),
			})
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})
	return filtered
}

// preview builds the list entry text: a "You: " marker when the local user
// sent the latest message, truncated to PreviewLength with an ellipsis.
func preview(m models.Message, localUser uint) string {
	text := m.Text
	if m.IsSender(localUser) {
		text = "You: " + text
	}
	runes := []rune(text)
	if len(runes) > PreviewLength {
		return string(runes[:PreviewLength]) + "..."
	}
	return text
}
