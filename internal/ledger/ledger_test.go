package ledger

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/slipline/pkg/statestore"
)

func setupTestLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	schema, err := Schema()
	require.NoError(t, err)

	store := statestore.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), schema, "")
	t.Cleanup(func() { store.Close() })

	return New(store), mr
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("absent before first save", func(t *testing.T) {
		l, _ := setupTestLedger(t)

		_, ok, err := l.Session(ctx, "12345")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round-trips the credential", func(t *testing.T) {
		l, _ := setupTestLedger(t)

		err := l.SaveSession(ctx, "12345", "opaque-session-string")
		require.NoError(t, err)

		credential, ok, err := l.Session(ctx, "12345")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "opaque-session-string", credential)
	})

	t.Run("uses the documented key layout", func(t *testing.T) {
		l, mr := setupTestLedger(t)

		err := l.SaveSession(ctx, "12345", "cred")
		require.NoError(t, err)

		assert.True(t, mr.Exists("TelegramState:12345"))
	})
}

func TestCursor(t *testing.T) {
	ctx := context.Background()

	t.Run("absent on first run for a channel", func(t *testing.T) {
		l, _ := setupTestLedger(t)

		_, ok, err := l.Cursor(ctx, "12345", 777)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("advance then read", func(t *testing.T) {
		l, _ := setupTestLedger(t)

		err := l.AdvanceCursor(ctx, "12345", 777, 41)
		require.NoError(t, err)

		id, ok, err := l.Cursor(ctx, "12345", 777)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(41), id)
	})

	t.Run("channels are independent", func(t *testing.T) {
		l, _ := setupTestLedger(t)

		err := l.AdvanceCursor(ctx, "12345", 777, 41)
		require.NoError(t, err)

		_, ok, err := l.Cursor(ctx, "12345", 888)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("uses the documented key layout", func(t *testing.T) {
		l, mr := setupTestLedger(t)

		err := l.AdvanceCursor(ctx, "12345", 777, 41)
		require.NoError(t, err)

		assert.True(t, mr.Exists("TelegramState:12345_777"))
	})

	t.Run("session and cursor keys do not collide", func(t *testing.T) {
		l, _ := setupTestLedger(t)

		err := l.SaveSession(ctx, "12345", "cred")
		require.NoError(t, err)
		err = l.AdvanceCursor(ctx, "12345", 777, 41)
		require.NoError(t, err)

		credential, ok, err := l.Session(ctx, "12345")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "cred", credential)
	})
}
