package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOrderID(t *testing.T) {
	t.Run("extracts the order token", func(t *testing.T) {
		orderID, err := extractOrderID("We have a new ticket\norderId: ORD-2231")
		require.NoError(t, err)
		assert.Equal(t, "ORD-2231", orderID)
	})

	t.Run("trims trailing whitespace", func(t *testing.T) {
		orderID, err := extractOrderID("orderId: ORD-2231 \nmore text")
		require.NoError(t, err)
		assert.Equal(t, "ORD-2231", orderID)
	})

	t.Run("errors when token is absent", func(t *testing.T) {
		_, err := extractOrderID("no order here")
		assert.Error(t, err)
	})
}

func TestExtractImageLink(t *testing.T) {
	t.Run("matches img-numbered label", func(t *testing.T) {
		link, err := extractImageLink("img1: https://cdn.example.com/slips/a.jpg")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/slips/a.jpg", link)
	})

	t.Run("matches attachment label", func(t *testing.T) {
		link, err := extractImageLink("attachment: http://cdn.example.com/b.png")
		require.NoError(t, err)
		assert.Equal(t, "http://cdn.example.com/b.png", link)
	})

	t.Run("errors without a labelled link", func(t *testing.T) {
		_, err := extractImageLink("see https://example.com")
		assert.Error(t, err)
	})

	t.Run("link stops at whitespace", func(t *testing.T) {
		link, err := extractImageLink("img2: https://cdn.example.com/c.jpg and more")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/c.jpg", link)
	})
}

func TestFetchImageBase64(t *testing.T) {
	ing := &Ingestor{httpClient: &http.Client{Timeout: 5 * time.Second}}
	ctx := context.Background()

	t.Run("downloads and encodes bytes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("abc"))
		}))
		t.Cleanup(server.Close)

		encoded, err := ing.fetchImageBase64(ctx, server.URL)
		require.NoError(t, err)
		assert.Equal(t, "YWJj", encoded)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(server.Close)

		_, err := ing.fetchImageBase64(ctx, server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("unreachable host is an error", func(t *testing.T) {
		_, err := ing.fetchImageBase64(ctx, "http://127.0.0.1:1/nope")
		assert.Error(t, err)
	})
}
