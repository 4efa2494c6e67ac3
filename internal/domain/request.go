package domain

// RedirectTarget is the alternate URI+headers the application should fetch
// instead of the originals. The engine always sends URI and headers together.
type RedirectTarget struct {
	URI     string            `json:"uri"`
	Headers map[string]string `json:"headers"`
}

// DataRequestParameters describes one engine-originated fetch request against
// a custom data source.
type DataRequestParameters struct {
	// ID is unique per outstanding request within a session. Delivery
	// correlates on it, also when a redirect is present.
	ID      string            `json:"id"`
	URI     string            `json:"uri"`
	Headers map[string]string `json:"headers"`
	// Finished reports that the engine's request stream is exhausted.
	Finished bool `json:"finished"`
	Canceled bool `json:"canceled"`
	// Redirect, when non-nil, is where the application should actually fetch.
	Redirect *RedirectTarget `json:"redirect,omitempty"`
	// DataLength is the wanted byte count; negative means total length unknown.
	DataLength int64 `json:"dataLength"`
	// DataOffset is the byte offset the engine wants this request to start at.
	DataOffset int64 `json:"dataOffset"`
	// RequestsAllData overrides DataOffset/DataLength: deliver the complete
	// resource. Set by engines that cannot express ranged requests.
	RequestsAllData bool `json:"requestsAllData"`
}

// PendingRequest is one in-flight fetch tracked by the registry.
type PendingRequest struct {
	SessionID int64                 `json:"sessionId"`
	Params    DataRequestParameters `json:"params"`
	Canceled  bool                  `json:"canceled"`
}

// ID returns the request id the entry is keyed by.
func (p PendingRequest) ID() string { return p.Params.ID }
