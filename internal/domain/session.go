package domain

import "time"

// Session is a snapshot of one active playback session as exposed by the ops
// API. The handle is assigned by the engine at creation time.
type Session struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	// Pending is the number of in-flight fetch requests at snapshot time.
	Pending int `json:"pending"`
}
