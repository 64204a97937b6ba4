package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unimarket/unimarket-chat/models"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{}

// newWSServer starts a websocket endpoint whose server-side conn is handed to
// the test through a channel.
func newWSServer(t *testing.T) (*httptest.Server, string, chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/ws/chat", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("token"))
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conns <- conn
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http"), conns
}

func newTestChannel(t *testing.T) (*LiveChannel, *Store, chan *websocket.Conn, func()) {
	t.Helper()
	srv, wsURL, conns := newWSServer(t)
	store := NewStore()
	channel := NewLiveChannel(wsURL, NewSession(42, "tok"), store, zap.NewNop().Sugar())
	return channel, store, conns, srv.Close
}

func TestSendBeforeOpenFails(t *testing.T) {
	store := NewStore()
	channel := NewLiveChannel("ws://unused", NewSession(42, "tok"), store, zap.NewNop().Sugar())

	err := channel.Send(7, "too early")
	assert.ErrorIs(t, err, ErrChannelNotReady)
	// No optimistic entry ends up in the store.
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, StateDisconnected, channel.State())
}

func TestOpenRequiresCredential(t *testing.T) {
	channel := NewLiveChannel("ws://unused", NewSession(0, ""), NewStore(), zap.NewNop().Sugar())
	assert.ErrorIs(t, channel.Open(context.Background()), ErrNoCredential)
}

func TestOpenFailureReturnsToDisconnected(t *testing.T) {
	channel := NewLiveChannel("ws://127.0.0.1:1", NewSession(42, "tok"), NewStore(), zap.NewNop().Sugar())

	err := channel.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, channel.State())

	// A fresh attempt is allowed after failure.
	err = channel.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, channel.State())
}

func TestOpenWhileOpenFails(t *testing.T) {
	channel, _, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	defer channel.Close()
	<-conns

	assert.Error(t, channel.Open(context.Background()))
	assert.Equal(t, StateOpen, channel.State())
}

func TestInboundFramesAreIngested(t *testing.T) {
	channel, store, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	defer channel.Close()
	server := <-conns

	frame, err := json.Marshal(msg(1, 7, 42, "hello", 1))
	require.NoError(t, err)
	require.NoError(t, server.WriteMessage(websocket.TextMessage, frame))

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello", store.All()[0].Text)
}

func TestMalformedFramesAreDiscarded(t *testing.T) {
	channel, store, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	defer channel.Close()
	server := <-conns

	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"id":0,"text":"no id"}`)))

	frame, err := json.Marshal(msg(2, 7, 42, "valid", 2))
	require.NoError(t, err)
	require.NoError(t, server.WriteMessage(websocket.TextMessage, frame))

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, StateOpen, channel.State())
	assert.Equal(t, "valid", store.All()[0].Text)
}

func TestSendReachesServer(t *testing.T) {
	channel, _, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	defer channel.Close()
	server := <-conns

	require.NoError(t, channel.Send(7, "hi there"))

	var request models.SendMessageRequest
	require.NoError(t, server.ReadJSON(&request))
	assert.Equal(t, uint(7), request.Receiver)
	assert.Equal(t, "hi there", request.Message)
}

func TestCloseStopsIngestion(t *testing.T) {
	channel, store, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	server := <-conns

	channel.Close()
	assert.Equal(t, StateDisconnected, channel.State())

	// An event arriving after teardown must not be ingested.
	frame, err := json.Marshal(msg(9, 7, 42, "late", 9))
	require.NoError(t, err)
	server.WriteMessage(websocket.TextMessage, frame)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, store.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	channel, _, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	<-conns

	channel.Close()
	channel.Close()
	assert.Equal(t, StateDisconnected, channel.State())
}

func TestServerDropMovesChannelToDisconnected(t *testing.T) {
	channel, _, conns, cleanup := newTestChannel(t)
	defer cleanup()

	require.NoError(t, channel.Open(context.Background()))
	server := <-conns

	server.Close()
	require.Eventually(t, func() bool {
		return channel.State() == StateDisconnected
	}, time.Second, 10*time.Millisecond)

	// Send after the drop reports not-ready rather than crashing.
	assert.ErrorIs(t, channel.Send(7, "after drop"), ErrChannelNotReady)
}
