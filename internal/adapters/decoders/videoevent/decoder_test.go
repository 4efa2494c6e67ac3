package videoevent

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"videobridge/internal/domain"
)

func mustPayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var p map[string]any
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return p
}

func TestDecodeUnknownTag(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"event":"heartbeat"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := ev.(domain.Unknown)
	if !ok || u.Tag != "heartbeat" {
		t.Fatalf("unexpected: %#v", ev)
	}
}

func TestDecodeMissingTag(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"duration":100}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ev.(domain.Unknown); !ok {
		t.Fatalf("unexpected: %#v", ev)
	}
}

func TestDecodeInitialized(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"event":"initialized","duration":60000,"width":1280,"height":720}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	init, ok := ev.(domain.Initialized)
	if !ok || init.Duration != time.Minute || init.Width != 1280 || init.Height != 720 {
		t.Fatalf("unexpected: %#v", ev)
	}
}

func TestDecodeInitializedDimensionDefaults(t *testing.T) {
	for name, raw := range map[string]string{
		"absent": `{"event":"initialized","duration":1}`,
		"null":   `{"event":"initialized","duration":1,"width":null,"height":null}`,
	} {
		ev, err := Decode(mustPayload(t, raw))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		init := ev.(domain.Initialized)
		if init.Width != 0.0 || init.Height != 0.0 {
			t.Fatalf("%s: expected zero dimensions, got %#v", name, init)
		}
	}
}

func TestDecodeInitializedNegativeDurationPassesThrough(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"event":"initialized","duration":-1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.(domain.Initialized).Duration != -time.Millisecond {
		t.Fatalf("unexpected: %#v", ev)
	}
}

func TestDecodeInitializedMissingDuration(t *testing.T) {
	if _, err := Decode(mustPayload(t, `{"event":"initialized"}`)); !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestDecodeBufferingUpdatePreservesOrder(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"event":"bufferingUpdate","values":[[0,1000],[1000,2500]]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.DurationRange{
		{Start: 0, End: time.Second},
		{Start: time.Second, End: 2500 * time.Millisecond},
	}
	if diff := cmp.Diff(want, ev.(domain.BufferingUpdate).Ranges); diff != "" {
		t.Fatalf("ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeBufferingUpdateBadPair(t *testing.T) {
	if _, err := Decode(mustPayload(t, `{"event":"bufferingUpdate","values":[[0,1000,5]]}`)); !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
	if _, err := Decode(mustPayload(t, `{"event":"bufferingUpdate"}`)); !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestDecodeFetchData(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"event":"fetch_data","request":{
		"id":"r1","url":"http://x/a","headers":{"X-Token":"abc"},
		"finished":"false","canceled":"false",
		"data_length":100,"data_offset":0,"data_request_all":"false"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fd, ok := ev.(domain.FetchData)
	if !ok {
		t.Fatalf("unexpected variant: %#v", ev)
	}
	req := fd.Request
	if req.ID != "r1" || req.URI != "http://x/a" || req.DataLength != 100 || req.DataOffset != 0 {
		t.Fatalf("unexpected: %#v", req)
	}
	if req.Finished || req.Canceled || req.RequestsAllData || req.Redirect != nil {
		t.Fatalf("unexpected flags: %#v", req)
	}
	if req.Headers["X-Token"] != "abc" {
		t.Fatalf("headers not carried: %#v", req.Headers)
	}
}

// Only the literal string "true" decodes true; native booleans, "True", and
// "1" are all false on this wire.
func TestDecodeStringBooleans(t *testing.T) {
	cases := map[string]bool{
		`"true"`:  true,
		`"True"`:  false,
		`"false"`: false,
		`"1"`:     false,
		`true`:    false,
	}
	for lit, want := range cases {
		raw := `{"event":"fetch_data","request":{"id":"r1","url":"u","headers":{},
			"finished":` + lit + `,"canceled":"false",
			"data_length":-1,"data_offset":0,"data_request_all":"false"}}`
		ev, err := Decode(mustPayload(t, raw))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", lit, err)
		}
		if got := ev.(domain.FetchData).Request.Finished; got != want {
			t.Fatalf("%s: finished=%v, want %v", lit, got, want)
		}
	}
}

func TestDecodeRedirectPair(t *testing.T) {
	withPair := `{"event":"fetch_data","request":{"id":"r1","url":"http://a","headers":{},
		"finished":"false","canceled":"false","data_length":-1,"data_offset":0,"data_request_all":"false",
		"redirect_url":"http://b","redirect_headers":{"Authorization":"Bearer t"}}}`
	ev, err := Decode(mustPayload(t, withPair))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	red := ev.(domain.FetchData).Request.Redirect
	if red == nil || red.URI != "http://b" || red.Headers["Authorization"] != "Bearer t" {
		t.Fatalf("unexpected redirect: %#v", red)
	}

	// one key without the other means no redirect
	half := `{"event":"fetch_data","request":{"id":"r1","url":"http://a","headers":{},
		"finished":"false","canceled":"false","data_length":-1,"data_offset":0,"data_request_all":"false",
		"redirect_url":"http://b"}}`
	ev, err = Decode(mustPayload(t, half))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.(domain.FetchData).Request.Redirect != nil {
		t.Fatalf("redirect should be absent without the headers key")
	}
}

func TestDecodeFetchDataMissingFields(t *testing.T) {
	for name, raw := range map[string]string{
		"no request": `{"event":"fetch_data"}`,
		"no id": `{"event":"fetch_data","request":{"url":"u","headers":{},
			"data_length":1,"data_offset":0}}`,
		"no url": `{"event":"fetch_data","request":{"id":"r","headers":{},
			"data_length":1,"data_offset":0}}`,
		"no headers": `{"event":"fetch_data","request":{"id":"r","url":"u",
			"data_length":1,"data_offset":0}}`,
		"no data_length": `{"event":"fetch_data","request":{"id":"r","url":"u","headers":{},
			"data_offset":0}}`,
		"no data_offset": `{"event":"fetch_data","request":{"id":"r","url":"u","headers":{},
			"data_length":1}}`,
	} {
		if _, err := Decode(mustPayload(t, raw)); !errors.Is(err, domain.ErrMalformedEvent) {
			t.Fatalf("%s: expected ErrMalformedEvent, got %v", name, err)
		}
	}
}

func TestDecodeCancelFetchData(t *testing.T) {
	ev, err := Decode(mustPayload(t, `{"event":"cancel_fetch_data","request":{
		"id":"r1","url":"http://x/a","headers":{},
		"finished":"false","canceled":"true",
		"data_length":-1,"data_offset":0,"data_request_all":"false"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel, ok := ev.(domain.CancelFetchData)
	if !ok || cancel.Request.ID != "r1" || !cancel.Request.Canceled {
		t.Fatalf("unexpected: %#v", ev)
	}
}

func TestDecodeStateEvents(t *testing.T) {
	if ev, _ := Decode(mustPayload(t, `{"event":"completed"}`)); ev != (domain.Completed{}) {
		t.Fatalf("unexpected: %#v", ev)
	}
	if ev, _ := Decode(mustPayload(t, `{"event":"bufferingStart"}`)); ev != (domain.BufferingStart{}) {
		t.Fatalf("unexpected: %#v", ev)
	}
	if ev, _ := Decode(mustPayload(t, `{"event":"bufferingEnd"}`)); ev != (domain.BufferingEnd{}) {
		t.Fatalf("unexpected: %#v", ev)
	}
}
