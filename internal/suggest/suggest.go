// Package suggest turns an arbitrary page URL into bookmark preview
// metadata: it guards the outbound fetch, bounds it, extracts preview
// fields from the HTML, and caches homepage results.
package suggest

import "errors"

// Metadata is the immutable result of a preview extraction. Title is
// never empty (it falls back to the hostname), tags are deduplicated
// and capped, and Favicon is always an absolute URL.
type Metadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	SuggestedTags []string `json:"suggestedTags"`
	Favicon       string   `json:"favicon"`
}

// Sentinel errors for the suggestion pipeline. The API boundary maps
// these onto the HTTP status taxonomy with errors.Is.
var (
	// ErrInvalidURL indicates the submitted URL is malformed or uses a
	// scheme other than http or https.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrFetchTimeout indicates the target did not answer within the
	// fetch deadline.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrUpstreamStatus indicates the target answered with a non-2xx
	// status.
	ErrUpstreamStatus = errors.New("upstream returned an error status")

	// ErrUnsupportedContent indicates the response is not HTML.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrTooLarge indicates the response body exceeded the byte cap.
	// The read is aborted mid-stream, never buffered unboundedly.
	ErrTooLarge = errors.New("response body too large")
)
