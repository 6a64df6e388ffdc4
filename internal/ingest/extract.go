package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// Slip messages embed the image as a labelled link and the order as a
// line-shaped token:
//
//	img1: https://cdn.example.com/slips/abc.jpg
//	orderId: ORD-2231
var (
	imageLinkPattern = regexp.MustCompile(`(?:img\d+|attachment):\s*(https?://\S+)`)
	orderIDPattern   = regexp.MustCompile(`orderId: (.*)`)
)

// extractOrderID pulls the order identifier out of the message text.
func extractOrderID(text string) (string, error) {
	m := orderIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", fmt.Errorf("no orderId token in message text")
	}
	return strings.TrimSpace(m[1]), nil
}

// extractImageLink pulls the embedded slip image URL out of the message
// text.
func extractImageLink(text string) (string, error) {
	m := imageLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return "", fmt.Errorf("no image link in message text")
	}
	return m[1], nil
}

// fetchImageBase64 downloads the slip image and returns it base64-encoded
// for the enrichment request.
func (ing *Ingestor) fetchImageBase64(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := ing.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
