package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydesk/slipline/internal/ingest"
)

func TestNewClient(t *testing.T) {
	t.Run("rejects empty base URL", func(t *testing.T) {
		_, err := NewClient("", nil)
		assert.Error(t, err)
	})
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()

	slip := ingest.SlipRequest{
		ImageBase64: "aGk=",
		OrderID:     "ORD-1",
		SenderID:    9,
		MessageID:   100,
		ThreadID:    50,
		ChannelID:   777,
		ChannelName: "P2P Tickets",
		FileName:    "slip.jpg",
	}

	t.Run("posts the slip and returns the reply", func(t *testing.T) {
		var got ingest.SlipRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/slips", r.URL.Path)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]string{"message": "Order <b>matched</b>"})
		}))
		t.Cleanup(server.Close)

		client, err := NewClient(server.URL, nil)
		require.NoError(t, err)

		reply, err := client.Enrich(ctx, slip)
		require.NoError(t, err)
		assert.Equal(t, "Order <b>matched</b>", reply)
		assert.Equal(t, slip, got)
	})

	t.Run("non-2xx surfaces as error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "ticket backend down", http.StatusBadGateway)
		}))
		t.Cleanup(server.Close)

		client, err := NewClient(server.URL, nil)
		require.NoError(t, err)

		_, err = client.Enrich(ctx, slip)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("empty reply is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"message": ""})
		}))
		t.Cleanup(server.Close)

		client, err := NewClient(server.URL, nil)
		require.NoError(t, err)

		_, err = client.Enrich(ctx, slip)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty reply")
	})
}
