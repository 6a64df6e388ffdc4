// Package ingest implements the resumable message ingestion pipeline: it
// resumes a channel from its persisted cursor, pulls new messages in
// bounded pages, extracts slip content from matching messages, hands it to
// the enrichment service and replies in-thread with transcoded rich text.
//
// Correctness rests on one rule: the cursor for a channel advances only
// after a message has been fully handled (replied to, or deliberately
// skipped), and messages are processed strictly in ascending ID order, one
// at a time per channel. A crash mid-message therefore re-processes that
// message on the next run (at-least-once); a crash between reply and
// cursor commit can produce a duplicate reply — the accepted trade-off.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paydesk/slipline/internal/ledger"
	"github.com/paydesk/slipline/internal/markup"
)

// DefaultTriggerPhrase marks a message as a work item for the pipeline.
const DefaultTriggerPhrase = "We have a new ticket"

// DefaultPageSize bounds each message pull.
const DefaultPageSize = 50

// sessionState tracks the chat session lifecycle explicitly instead of a
// nullable client checked before each use.
type sessionState int

const (
	sessionUninitialized sessionState = iota
	sessionConnecting
	sessionReady
	sessionFailed
)

// Options configures an Ingestor.
type Options struct {
	AccountID     string
	TriggerPhrase string       // defaults to DefaultTriggerPhrase
	PageSize      int          // defaults to DefaultPageSize
	HTTPClient    *http.Client // used for slip image downloads; defaults to a 30s-timeout client
}

// Ingestor drives ingestion runs for one account. A single run processes
// each channel sequentially by message ID; different channels may be
// processed concurrently because their cursor keys are independent. No
// two runs for the same channel may be in flight at once — the cursor
// commit protocol is not safe under concurrent writers.
type Ingestor struct {
	accountID  string
	trigger    string
	pageSize   int
	chat       ChatClient
	enricher   Enricher
	ledger     *ledger.Ledger
	httpClient *http.Client

	mu    sync.Mutex
	state sessionState
}

// New creates an ingestor over the given collaborators.
func New(opts Options, chat ChatClient, enricher Enricher, led *ledger.Ledger) *Ingestor {
	trigger := opts.TriggerPhrase
	if trigger == "" {
		trigger = DefaultTriggerPhrase
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Ingestor{
		accountID:  opts.AccountID,
		trigger:    trigger,
		pageSize:   pageSize,
		chat:       chat,
		enricher:   enricher,
		ledger:     led,
		httpClient: httpClient,
	}
}

// RunChannels processes each channel in its own goroutine and waits for
// all of them. The session is established once, up front; a session
// failure aborts the whole invocation before any channel is touched.
// Per-channel failures are collected and joined.
func (ing *Ingestor) RunChannels(ctx context.Context, channelIDs []int64) error {
	if err := ing.ensureSession(ctx); err != nil {
		return err
	}

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		runErrs []error
	)

	for _, channelID := range channelIDs {
		wg.Add(1)
		go func(channelID int64) {
			defer wg.Done()
			if err := ing.ProcessChannel(ctx, channelID); err != nil {
				errMu.Lock()
				runErrs = append(runErrs, fmt.Errorf("channel %d: %w", channelID, err))
				errMu.Unlock()
			}
		}(channelID)
	}

	wg.Wait()
	return errors.Join(runErrs...)
}

// ProcessChannel runs one ingestion pass over a single channel: resume
// from the cursor, pull pages of newer messages, handle each in ascending
// ID order and commit the cursor after each one. Returns only run-fatal
// errors; per-message extraction and enrichment failures are logged and
// the pass continues.
func (ing *Ingestor) ProcessChannel(ctx context.Context, channelID int64) error {
	if err := ing.ensureSession(ctx); err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	log.Printf("[INFO] run=%s channel=%d ingestion pass starting", runID, channelID)

	cursor, err := ing.resumeCursor(ctx, channelID)
	if err != nil {
		return err
	}

	processed := 0
	for {
		page, err := ing.chat.MessagesAfter(ctx, channelID, cursor, ing.pageSize)
		if err != nil {
			return fmt.Errorf("failed to pull messages after %d: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}

		// The platform's native ordering is assumed monotonic by ID, but
		// the commit protocol depends on it, so sort rather than trust.
		sort.Slice(page, func(i, j int) bool { return page[i].ID < page[j].ID })

		for _, msg := range page {
			if msg.ID <= cursor {
				// Idempotent re-delivery guard: already committed, do not
				// touch the cursor.
				continue
			}

			ing.handleMessage(ctx, runID, channelID, msg)
			processed++

			// The single correctness-critical line: commit strictly after
			// the message has been handled or skipped, never before.
			if err := ing.ledger.AdvanceCursor(ctx, ing.accountID, channelID, msg.ID); err != nil {
				return err
			}
			cursor = msg.ID
		}

		if len(page) < ing.pageSize {
			break
		}
	}

	log.Printf("[INFO] run=%s channel=%d ingestion pass complete, %d message(s) handled", runID, channelID, processed)
	return nil
}

// resumeCursor loads the channel cursor, or establishes the cold-start
// watermark: on the first run for a channel the pipeline deliberately
// skips all pre-existing history and only picks up messages arriving
// after the most recent one (no backfill).
func (ing *Ingestor) resumeCursor(ctx context.Context, channelID int64) (int64, error) {
	cursor, ok, err := ing.ledger.Cursor(ctx, ing.accountID, channelID)
	if err != nil {
		return 0, err
	}
	if ok {
		return cursor, nil
	}

	recent, err := ing.chat.RecentMessages(ctx, channelID, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch most recent message: %w", err)
	}
	if len(recent) == 0 {
		return 0, nil
	}
	return recent[0].ID - 1, nil
}

// handleMessage takes one message through filter → extract → enrich →
// reply. Failures are logged, never returned: whatever happens here, the
// caller advances the cursor — a malformed message can never succeed on
// retry, and enrichment is never retried automatically.
func (ing *Ingestor) handleMessage(ctx context.Context, runID string, channelID int64, msg Message) {
	if !strings.Contains(msg.Text, ing.trigger) {
		return
	}

	link, err := extractImageLink(msg.Text)
	if err != nil {
		log.Printf("[WARN] run=%s channel=%d %v", runID, channelID, &ExtractionError{MessageID: msg.ID, Reason: err.Error()})
		return
	}

	imageBase64, err := ing.fetchImageBase64(ctx, link)
	if err != nil {
		log.Printf("[WARN] run=%s channel=%d %v", runID, channelID, &ExtractionError{MessageID: msg.ID, Reason: err.Error()})
		return
	}

	orderID, err := extractOrderID(msg.Text)
	if err != nil {
		log.Printf("[WARN] run=%s channel=%d %v", runID, channelID, &ExtractionError{MessageID: msg.ID, Reason: err.Error()})
		return
	}

	channelName, err := ing.chat.ChannelTitle(ctx, channelID)
	if err != nil {
		log.Printf("[WARN] run=%s channel=%d message=%d failed to resolve channel title: %v", runID, channelID, msg.ID, err)
		return
	}

	reply, err := ing.enricher.Enrich(ctx, SlipRequest{
		ImageBase64: imageBase64,
		OrderID:     orderID,
		SenderID:    msg.SenderID,
		MessageID:   msg.ID,
		ThreadID:    msg.ThreadID,
		ChannelID:   channelID,
		ChannelName: channelName,
		FileName:    msg.FileName,
	})
	if err != nil {
		log.Printf("[WARN] run=%s channel=%d %v", runID, channelID, &EnrichmentError{MessageID: msg.ID, Err: err})
		return
	}

	plain, spans := markup.Transcode(reply)
	if err := ing.chat.Reply(ctx, channelID, msg.ID, plain, spans); err != nil {
		log.Printf("[ERROR] run=%s channel=%d message=%d failed to send reply: %v", runID, channelID, msg.ID, err)
		return
	}

	log.Printf("[INFO] run=%s channel=%d message=%d replied (order=%s)", runID, channelID, msg.ID, orderID)
}

// ensureSession drives the session state machine to Ready. The credential
// must already exist in the ledger — registration is an out-of-band step
// (the session CLI commands). Safe for concurrent callers; the session is
// connected at most once.
func (ing *Ingestor) ensureSession(ctx context.Context) error {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	switch ing.state {
	case sessionReady:
		return nil
	case sessionFailed:
		return &SessionError{Err: fmt.Errorf("session previously failed for account %s", ing.accountID)}
	}

	ing.state = sessionConnecting

	credential, ok, err := ing.ledger.Session(ctx, ing.accountID)
	if err != nil {
		ing.state = sessionFailed
		return &SessionError{Err: err}
	}
	if !ok {
		ing.state = sessionFailed
		return &SessionError{Err: fmt.Errorf("no session credential for account %s: complete registration first", ing.accountID)}
	}

	if err := ing.chat.Connect(ctx, credential); err != nil {
		ing.state = sessionFailed
		return &SessionError{Err: err}
	}

	ing.state = sessionReady
	return nil
}
