package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/unimarket/unimarket-chat/models"
	"go.uber.org/zap"
)

var (
	// ErrHistoryUnavailable covers any transport, authorization or decode
	// failure on the initial load. The store is left untouched; callers show
	// an error state and may retry.
	ErrHistoryUnavailable = errors.New("message history unavailable")

	// ErrNoCredential means no bearer token is present; callers show an
	// authentication-required state instead of fetching.
	ErrNoCredential = errors.New("no session credential")
)

// HistoryLoader performs the one-shot authenticated read of the durable
// message log and populates a store with it atomically. It never partially
// ingests: a failed fetch leaves the store exactly as it was.
type HistoryLoader struct {
	client  *http.Client
	baseURL string
	log     *zap.SugaredLogger
}

func NewHistoryLoader(baseURL string, logger *zap.SugaredLogger) *HistoryLoader {
	return &HistoryLoader{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		log:     logger,
	}
}

// historyEnvelope matches the server's uniform response shape; the message
// records live under "data".
type historyEnvelope struct {
	Data []models.Message `json:"data"`
}

// Load fetches the full message history for the session user and ingests it
// as one batch. Cancel the context on logout: a response that resolves after
// cancellation is discarded, never ingested against a cleared credential.
func (l *HistoryLoader) Load(ctx context.Context, session *Session, store *Store) error {
	token := session.Token()
	if token == "" {
		return ErrNoCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/v1/messages", nil)
	if err != nil {
		return errors.Wrap(ErrHistoryUnavailable, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := l.client.Do(req)
	if err != nil {
		l.log.Warnw("history fetch failed", "err", err)
		return errors.Wrap(ErrHistoryUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.log.Warnw("history fetch rejected", "status", resp.StatusCode)
		return errors.Wrap(ErrHistoryUnavailable, fmt.Sprintf("status %d", resp.StatusCode))
	}

	var envelope historyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Wrap(ErrHistoryUnavailable, err.Error())
	}

	// Stale-response guard: the credential may have been cleared while the
	// request was in flight.
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrHistoryUnavailable, err.Error())
	}
	if session.Token() != token {
		l.log.Infow("discarding stale history response")
		return errors.Wrap(ErrHistoryUnavailable, "credential changed during fetch")
	}

	store.IngestBatch(envelope.Data)
	l.log.Debugw("history loaded", "messages", len(envelope.Data))
	return nil
}
