package videoevent

import (
	"encoding/json"
	"fmt"
	"time"

	"videobridge/internal/domain"
)

// Decode turns one tagged engine payload into exactly one typed VideoEvent.
// Dispatch key is the payload's "event" field. Supported tags:
//   - "initialized":       duration (ms, required), optional width/height
//   - "completed"
//   - "bufferingUpdate":   values = sequence of [startMs, endMs] pairs
//   - "bufferingStart" / "bufferingEnd"
//   - "fetch_data" / "cancel_fetch_data": nested "request" mapping
//
// An unmatched or missing tag yields domain.Unknown, never an error: the
// engine may introduce event types this build predates. Errors wrap
// domain.ErrMalformedEvent and mean the single event must be dropped while
// the stream continues.
func Decode(payload map[string]any) (domain.VideoEvent, error) {
	tag, _ := payload["event"].(string)
	switch tag {
	case "initialized":
		return decodeInitialized(payload)
	case "completed":
		return domain.Completed{}, nil
	case "bufferingUpdate":
		return decodeBufferingUpdate(payload)
	case "bufferingStart":
		return domain.BufferingStart{}, nil
	case "bufferingEnd":
		return domain.BufferingEnd{}, nil
	case "fetch_data":
		req, err := decodeRequest(payload)
		if err != nil {
			return nil, err
		}
		return domain.FetchData{Request: req}, nil
	case "cancel_fetch_data":
		req, err := decodeRequest(payload)
		if err != nil {
			return nil, err
		}
		return domain.CancelFetchData{Request: req}, nil
	default:
		return domain.Unknown{Tag: tag}, nil
	}
}

func decodeInitialized(p map[string]any) (domain.VideoEvent, error) {
	dur, ok := asInt64(p["duration"])
	if !ok {
		return nil, fmt.Errorf("%w: initialized: missing or non-integer duration", domain.ErrMalformedEvent)
	}
	ev := domain.Initialized{Duration: time.Duration(dur) * time.Millisecond}
	// width/height default to 0 when absent or null; negative duration is
	// engine-trusted and passed through.
	var err error
	if ev.Width, err = optionalFloat(p, "width"); err != nil {
		return nil, err
	}
	if ev.Height, err = optionalFloat(p, "height"); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeBufferingUpdate(p map[string]any) (domain.VideoEvent, error) {
	raw, ok := p["values"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: bufferingUpdate: missing values", domain.ErrMalformedEvent)
	}
	pairs := make([][]int64, 0, len(raw))
	for i, rp := range raw {
		elems, ok := rp.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: bufferingUpdate: value %d is not a pair", domain.ErrMalformedEvent, i)
		}
		pair := make([]int64, 0, len(elems))
		for _, e := range elems {
			n, ok := asInt64(e)
			if !ok {
				return nil, fmt.Errorf("%w: bufferingUpdate: value %d has a non-integer bound", domain.ErrMalformedEvent, i)
			}
			pair = append(pair, n)
		}
		pairs = append(pairs, pair)
	}
	ranges, err := domain.RangesFromPairs(pairs)
	if err != nil {
		return nil, err
	}
	return domain.BufferingUpdate{Ranges: ranges}, nil
}

func decodeRequest(p map[string]any) (domain.DataRequestParameters, error) {
	rm, ok := p["request"].(map[string]any)
	if !ok {
		return domain.DataRequestParameters{}, fmt.Errorf("%w: missing request mapping", domain.ErrMalformedEvent)
	}
	id, ok := rm["id"].(string)
	if !ok {
		return domain.DataRequestParameters{}, fmt.Errorf("%w: request: missing id", domain.ErrMalformedEvent)
	}
	uri, ok := rm["url"].(string)
	if !ok {
		return domain.DataRequestParameters{}, fmt.Errorf("%w: request %s: missing url", domain.ErrMalformedEvent, id)
	}
	headers, err := asHeaders(rm["headers"])
	if err != nil {
		return domain.DataRequestParameters{}, fmt.Errorf("%w: request %s: headers: %v", domain.ErrMalformedEvent, id, err)
	}
	length, ok := asInt64(rm["data_length"])
	if !ok {
		return domain.DataRequestParameters{}, fmt.Errorf("%w: request %s: missing data_length", domain.ErrMalformedEvent, id)
	}
	offset, ok := asInt64(rm["data_offset"])
	if !ok {
		return domain.DataRequestParameters{}, fmt.Errorf("%w: request %s: missing data_offset", domain.ErrMalformedEvent, id)
	}
	req := domain.DataRequestParameters{
		ID:      id,
		URI:     uri,
		Headers: headers,
		// The wire encodes booleans as the literal strings "true"/"false";
		// only exactly "true" is true. The strings never leak past here.
		Finished:        stringBool(rm["finished"]),
		Canceled:        stringBool(rm["canceled"]),
		RequestsAllData: stringBool(rm["data_request_all"]),
		DataLength:      length,
		DataOffset:      offset,
	}
	// redirect_url/redirect_headers come only as a pair; key absence (not an
	// empty value) means no redirect.
	ru, ruOK := rm["redirect_url"]
	rh, rhOK := rm["redirect_headers"]
	if ruOK && rhOK {
		target, ok := ru.(string)
		if !ok {
			return domain.DataRequestParameters{}, fmt.Errorf("%w: request %s: non-string redirect_url", domain.ErrMalformedEvent, id)
		}
		rheaders, err := asHeaders(rh)
		if err != nil {
			return domain.DataRequestParameters{}, fmt.Errorf("%w: request %s: redirect_headers: %v", domain.ErrMalformedEvent, id, err)
		}
		req.Redirect = &domain.RedirectTarget{URI: target, Headers: rheaders}
	}
	return req, nil
}

func optionalFloat(p map[string]any, key string) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, nil
	}
	f, ok := asFloat64(v)
	if !ok {
		return 0, fmt.Errorf("%w: non-numeric %s", domain.ErrMalformedEvent, key)
	}
	return f, nil
}

// stringBool decodes the wire's string-encoded booleans. Anything but the
// exact string "true" (including "True", "1", absent, or a native bool) is
// false.
func stringBool(v any) bool {
	s, ok := v.(string)
	return ok && s == "true"
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asHeaders(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not a string mapping")
	}
	out := make(map[string]string, len(m))
	for k, hv := range m {
		s, ok := hv.(string)
		if !ok {
			return nil, fmt.Errorf("non-string value for %q", k)
		}
		out[k] = s
	}
	return out, nil
}
