package ingest

import (
	"errors"
	"fmt"
)

// ExtractionError reports a matched message whose content could not be
// parsed into a slip (missing image link or order ID). The message can
// never succeed on retry, so it is marked processed and never requeued.
type ExtractionError struct {
	MessageID int64
	Reason    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("message %d: extraction failed: %s", e.MessageID, e.Reason)
}

// EnrichmentError reports a failed enrichment call for one message. The
// reply is skipped and the message is marked processed; there is no
// automatic retry.
type EnrichmentError struct {
	MessageID int64
	Err       error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("message %d: enrichment failed: %v", e.MessageID, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// SessionError reports a failure to establish or resume the channel
// session. Fatal for the whole run, not per-message.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("chat session failed: %v", e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsSessionError returns true if the error is run-fatal session failure.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}
