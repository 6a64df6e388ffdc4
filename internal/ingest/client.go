package ingest

import (
	"context"

	"github.com/paydesk/slipline/internal/markup"
)

// Message is one chat message as seen by the ingestion pipeline.
type Message struct {
	ID       int64  `json:"id"`
	SenderID int64  `json:"sender_id"`
	ThreadID int64  `json:"thread_id"` // reply-to message ID, 0 when not threaded
	Text     string `json:"text"`
	FileName string `json:"file_name"` // attachment name, empty when none
}

// ChatClient is the narrow surface the pipeline needs from the chat
// platform. Implementations must be safe for concurrent use: independent
// channels may be ingested from separate goroutines over one client.
//
// MessagesAfter must return messages with ID > minID in ascending ID
// order, at most limit per call; the ingestor sorts defensively anyway.
type ChatClient interface {
	// Connect establishes the channel session from a persisted credential.
	Connect(ctx context.Context, credential string) error

	// SendCode starts out-of-band registration and returns the code hash
	// needed by SignIn.
	SendCode(ctx context.Context) (string, error)

	// SignIn completes registration with the one-time code and returns the
	// exported session credential for persistence.
	SignIn(ctx context.Context, code, codeHash string) (string, error)

	// RecentMessages returns the newest messages of a channel, newest
	// first, at most limit.
	RecentMessages(ctx context.Context, channelID int64, limit int) ([]Message, error)

	// MessagesAfter returns messages with ID greater than minID.
	MessagesAfter(ctx context.Context, channelID, minID int64, limit int) ([]Message, error)

	// ChannelTitle resolves a channel's display name.
	ChannelTitle(ctx context.Context, channelID int64) (string, error)

	// Reply sends a threaded reply with offset-based style spans.
	Reply(ctx context.Context, channelID, inReplyTo int64, text string, spans []markup.Span) error
}

// SlipRequest is the content handed to the enrichment service for one
// matched slip message.
type SlipRequest struct {
	ImageBase64 string `json:"image_base64"`
	OrderID     string `json:"order_id"`
	SenderID    int64  `json:"sender_id"`
	MessageID   int64  `json:"message_id"`
	ThreadID    int64  `json:"thread_id"`
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	FileName    string `json:"file_name"`
}

// Enricher turns extracted slip content into a human-readable reply. The
// reply may contain the markup tag vocabulary understood by
// markup.Transcode. Any error means "no message to send".
type Enricher interface {
	Enrich(ctx context.Context, req SlipRequest) (string, error)
}
