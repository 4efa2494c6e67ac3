package domain

import "errors"

// SourceDescriptor selects what a new session should play. Exactly one of
// Asset, URI, FilePath, or ContentHandle is populated per call.
type SourceDescriptor struct {
	// Asset is a bundled asset key resolved by the engine.
	Asset string `json:"asset,omitempty"`
	// URI is a network source. Custom switches it to application-supplied
	// bytes (the engine then issues fetch_data requests instead of fetching
	// itself).
	URI        string            `json:"uri,omitempty"`
	FormatHint string            `json:"formatHint,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Custom     bool              `json:"custom,omitempty"`
	// FilePath is a local file source.
	FilePath string `json:"filePath,omitempty"`
	// ContentHandle is an opaque platform content handle.
	ContentHandle string `json:"contentHandle,omitempty"`
}

// Validate checks that exactly one source form is populated.
func (s SourceDescriptor) Validate() error {
	n := 0
	if s.Asset != "" {
		n++
	}
	if s.URI != "" {
		n++
	}
	if s.FilePath != "" {
		n++
	}
	if s.ContentHandle != "" {
		n++
	}
	if n != 1 {
		return errors.New("source descriptor: exactly one of asset, uri, filePath, contentHandle must be set")
	}
	if s.Custom && s.URI == "" {
		return errors.New("source descriptor: custom requires uri")
	}
	return nil
}
