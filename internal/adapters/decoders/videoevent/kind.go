package videoevent

import "videobridge/internal/domain"

// Kind returns the wire tag for a decoded event, for logs and metric labels.
func Kind(ev domain.VideoEvent) string {
	switch ev.(type) {
	case domain.Initialized:
		return "initialized"
	case domain.Completed:
		return "completed"
	case domain.BufferingUpdate:
		return "bufferingUpdate"
	case domain.BufferingStart:
		return "bufferingStart"
	case domain.BufferingEnd:
		return "bufferingEnd"
	case domain.FetchData:
		return "fetch_data"
	case domain.CancelFetchData:
		return "cancel_fetch_data"
	default:
		return "unknown"
	}
}
