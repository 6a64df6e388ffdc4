// Package ledger tracks, per account and channel, the ingestion cursor and
// the persisted chat session credential. It is a thin typed accessor over
// the statestore; the correctness of the whole pipeline rests on callers
// advancing the cursor only after a message has been fully handled.
package ledger

import (
	"context"
	"fmt"

	"github.com/paydesk/slipline/pkg/statestore"
)

// SchemaName is the logical record type backing the ledger.
const SchemaName = "TelegramState"

const (
	fieldSession       = "session"
	fieldLastMessageID = "last_message_id"
)

// Schema returns the ledger's statestore schema: an optional session
// credential and an optional last-processed message ID.
func Schema() (*statestore.Schema, error) {
	return statestore.NewSchema(SchemaName, map[string]statestore.FieldSpec{
		fieldSession:       {Type: statestore.FieldString},
		fieldLastMessageID: {Type: statestore.FieldInt},
	})
}

// Ledger is the typed cursor/session accessor. Session state is keyed by
// {accountID}; cursor state by {accountID}_{channelID}. One ledger may be
// shared across channels — keys are independent.
type Ledger struct {
	store *statestore.Store
}

// New creates a ledger over a statestore bound to the TelegramState schema.
func New(store *statestore.Store) *Ledger {
	return &Ledger{store: store}
}

// cursorKey builds the per-channel cursor key.
func cursorKey(accountID string, channelID int64) string {
	return fmt.Sprintf("%s_%d", accountID, channelID)
}

// Session returns the persisted session credential for the account.
// The second return is false when no credential has been stored.
func (l *Ledger) Session(ctx context.Context, accountID string) (string, bool, error) {
	rec, err := l.store.Fetch(ctx, accountID)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch session: %w", err)
	}

	credential, ok := rec[fieldSession].(string)
	if !ok || credential == "" {
		return "", false, nil
	}
	return credential, true, nil
}

// SaveSession persists the session credential for the account.
func (l *Ledger) SaveSession(ctx context.Context, accountID, credential string) error {
	if _, err := l.store.Save(ctx, accountID, statestore.Record{fieldSession: credential}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Cursor returns the last processed message ID for the channel.
// The second return is false on the first run for a channel.
func (l *Ledger) Cursor(ctx context.Context, accountID string, channelID int64) (int64, bool, error) {
	rec, err := l.store.Fetch(ctx, cursorKey(accountID, channelID))
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch cursor: %w", err)
	}

	id, ok := rec[fieldLastMessageID].(int64)
	if !ok {
		return 0, false, nil
	}
	return id, true, nil
}

// AdvanceCursor persists a new last-processed message ID for the channel.
//
// Caller contract: invoke only after the message has been fully handled
// (replied to, or deliberately skipped). The cursor must never move
// backward; callers process messages in ascending ID order, which makes
// every advance monotonic.
func (l *Ledger) AdvanceCursor(ctx context.Context, accountID string, channelID, messageID int64) error {
	key := cursorKey(accountID, channelID)
	if _, err := l.store.Save(ctx, key, statestore.Record{fieldLastMessageID: messageID}); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}
