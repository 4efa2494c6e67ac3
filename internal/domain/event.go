package domain

import "time"

// VideoEvent is one decoded engine event. The set of variants is closed;
// payloads with an unrecognized tag decode to Unknown.
type VideoEvent interface {
	videoEvent()
}

// Initialized is emitted once the engine has loaded the media and knows its
// duration and (for video) dimensions. Width/Height are 0 when the engine did
// not report them.
type Initialized struct {
	Duration time.Duration
	Width    float64
	Height   float64
}

// Completed is emitted when playback reaches the end of the media.
type Completed struct{}

// BufferingUpdate carries the engine's buffered ranges, verbatim: order and
// overlap are engine-authoritative, this layer never merges or sorts them.
type BufferingUpdate struct {
	Ranges []DurationRange
}

// BufferingStart is emitted when the engine stalls waiting for data.
type BufferingStart struct{}

// BufferingEnd is emitted when the engine has enough data to resume.
type BufferingEnd struct{}

// FetchData asks the application to supply bytes for a custom data source.
type FetchData struct {
	Request DataRequestParameters
}

// CancelFetchData flags that the engine no longer needs a previously
// requested fetch. Cancellation is advisory: an in-flight delivery for the
// same id is still accepted.
type CancelFetchData struct {
	Request DataRequestParameters
}

// Unknown is the fallback for event tags this build predates.
type Unknown struct {
	Tag string
}

func (Initialized) videoEvent()     {}
func (Completed) videoEvent()       {}
func (BufferingUpdate) videoEvent() {}
func (BufferingStart) videoEvent()  {}
func (BufferingEnd) videoEvent()    {}
func (FetchData) videoEvent()       {}
func (CancelFetchData) videoEvent() {}
func (Unknown) videoEvent()         {}
