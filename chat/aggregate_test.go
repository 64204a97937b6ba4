package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unimarket/unimarket-chat/models"
)

const localUser uint = 42

func named(m models.Message, senderName, receiverName string) models.Message {
	m.SenderName = senderName
	m.ReceiverName = receiverName
	return m
}

func TestThreadMergesHistoryAndLiveByTimestamp(t *testing.T) {
	store := NewStore()
	// History arrives first with A(t=1) and B(t=3); a live event C(t=2) for
	// the same peer lands afterwards.
	store.IngestBatch([]models.Message{
		msg(1, localUser, 7, "A", 1),
		msg(3, 7, localUser, "B", 3),
	})
	store.Ingest(msg(2, localUser, 7, "C", 2))

	thread := Thread(store.All(), localUser, 7)
	require.Len(t, thread, 3)
	assert.Equal(t, "A", thread[0].Text)
	assert.Equal(t, "C", thread[1].Text)
	assert.Equal(t, "B", thread[2].Text)
}

func TestThreadMergeIsArrivalOrderIndependent(t *testing.T) {
	store := NewStore()
	// Live event beats the history load this time.
	store.Ingest(msg(2, localUser, 7, "C", 2))
	store.IngestBatch([]models.Message{
		msg(1, localUser, 7, "A", 1),
		msg(3, 7, localUser, "B", 3),
	})

	thread := Thread(store.All(), localUser, 7)
	require.Len(t, thread, 3)
	assert.Equal(t, "A", thread[0].Text)
	assert.Equal(t, "C", thread[1].Text)
	assert.Equal(t, "B", thread[2].Text)
}

func TestThreadComputesViewerRole(t *testing.T) {
	msgs := []models.Message{
		msg(1, localUser, 7, "from me", 1),
		msg(2, 7, localUser, "from them", 2),
	}

	thread := Thread(msgs, localUser, 7)
	require.Len(t, thread, 2)
	assert.True(t, thread[0].IsSender)
	assert.False(t, thread[1].IsSender)
}

func TestThreadUnknownPeerIsEmpty(t *testing.T) {
	msgs := []models.Message{msg(1, localUser, 7, "hello", 1)}
	assert.Empty(t, Thread(msgs, localUser, 99))
	assert.Empty(t, Thread(nil, localUser, 7))
}

func TestConversationsSortedByRecency(t *testing.T) {
	msgs := []models.Message{
		msg(1, localUser, 10, "to X", 5),
		msg(2, 20, localUser, "from Y", 9),
	}

	conversations := Conversations(msgs, localUser)
	require.Len(t, conversations, 2)
	assert.Equal(t, uint(20), conversations[0].PeerID)
	assert.Equal(t, uint(10), conversations[1].PeerID)
}

func TestConversationsKeepLatestMessagePerPeer(t *testing.T) {
	msgs := []models.Message{
		msg(1, localUser, 7, "old", 1),
		msg(2, 7, localUser, "newest", 8),
		msg(3, localUser, 7, "middle", 4),
	}

	conversations := Conversations(msgs, localUser)
	require.Len(t, conversations, 1)
	assert.Equal(t, "newest", conversations[0].LatestMessage.Text)
	assert.Equal(t, "newest", conversations[0].Preview)
}

func TestConversationsUsePeerDisplayMetadata(t *testing.T) {
	msgs := []models.Message{
		named(msg(1, 7, localUser, "hi", 1), "ada", "me"),
	}

	conversations := Conversations(msgs, localUser)
	require.Len(t, conversations, 1)
	assert.Equal(t, "ada", conversations[0].PeerName)
}

func TestPreviewMarksOwnMessages(t *testing.T) {
	msgs := []models.Message{msg(1, localUser, 7, "see you at the library", 1)}
	conversations := Conversations(msgs, localUser)
	require.Len(t, conversations, 1)
	assert.Equal(t, "You: see you at the library", conversations[0].Preview)
}

func TestPreviewTruncation(t *testing.T) {
	long := strings.Repeat("a", 80)
	conversations := Conversations([]models.Message{msg(1, 7, localUser, long, 1)}, localUser)
	require.Len(t, conversations, 1)
	assert.Equal(t, strings.Repeat("a", 50)+"...", conversations[0].Preview)

	short := strings.Repeat("b", 30)
	conversations = Conversations([]models.Message{msg(1, 7, localUser, short, 1)}, localUser)
	require.Len(t, conversations, 1)
	assert.Equal(t, short, conversations[0].Preview)
}

func TestConversationsEmptyStore(t *testing.T) {
	assert.Empty(t, Conversations(nil, localUser))
}

func TestDuplicateDeliveryCannotSkewRecency(t *testing.T) {
	// The same message seen via history and live echo collapses by id in the
	// store, so the conversation carries its true timestamp once.
	store := NewStore()
	echo := msg(5, localUser, 7, "dup", 6)
	store.IngestBatch([]models.Message{echo, msg(6, 20, localUser, "later", 7)})
	store.Ingest(echo)

	conversations := Conversations(store.All(), localUser)
	require.Len(t, conversations, 2)
	assert.Equal(t, uint(20), conversations[0].PeerID)
}
