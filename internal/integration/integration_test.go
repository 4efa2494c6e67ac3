package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"videobridge/internal/adapters/storage/memory"
	"videobridge/internal/domain"
	cfgpkg "videobridge/internal/infrastructure/config"
	"videobridge/internal/infrastructure/engine"
	"videobridge/internal/infrastructure/fetcher"
	obs "videobridge/internal/infrastructure/observability"
	"videobridge/internal/usecase"
)

type deliverFrame struct {
	Type      string            `json:"type"`
	SessionID int64             `json:"sessionId"`
	RequestID string            `json:"requestId"`
	Headers   map[string]string `json:"headers"`
	Data      []byte            `json:"data"`
}

// fakeEngine is an in-test playback engine: replies to create, and on play
// emits an initialized event plus one ranged fetch_data against blobURL.
type fakeEngine struct {
	blobURL   string
	delivered chan deliverFrame
}

func (e *fakeEngine) handler(t *testing.T) http.HandlerFunc {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var wmu sync.Mutex
		writeJSON := func(v any) {
			data, err := json.Marshal(v)
			if err != nil {
				t.Errorf("marshal: %v", err)
				return
			}
			wmu.Lock()
			defer wmu.Unlock()
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m struct {
				Type   string `json:"type"`
				CallID int64  `json:"callId"`
				Method string `json:"method"`
			}
			if err := json.Unmarshal(data, &m); err != nil {
				t.Errorf("bad frame: %v", err)
				continue
			}
			switch m.Type {
			case "call":
				switch m.Method {
				case "create":
					writeJSON(map[string]any{"type": "reply", "callId": m.CallID, "result": map[string]any{"sessionId": 7}})
				case "play":
					writeJSON(map[string]any{"type": "event", "sessionId": 7, "payload": map[string]any{
						"event": "initialized", "duration": 60000, "width": 1280.0, "height": 720.0,
					}})
					writeJSON(map[string]any{"type": "event", "sessionId": 7, "payload": map[string]any{
						"event": "fetch_data",
						"request": map[string]any{
							"id":               "r1",
							"url":              e.blobURL,
							"headers":          map[string]any{},
							"finished":         "false",
							"canceled":         "false",
							"data_length":      4096,
							"data_offset":      0,
							"data_request_all": "false",
						},
					}})
				}
			case "deliver_data":
				var d deliverFrame
				if err := json.Unmarshal(data, &d); err != nil {
					t.Errorf("bad delivery frame: %v", err)
					continue
				}
				e.delivered <- d
			}
		}
	}
}

func TestBridgeEndToEnd(t *testing.T) {
	blob := bytes.Repeat([]byte{0xA7}, 16384)
	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "blob.bin", time.Time{}, bytes.NewReader(blob))
	}))
	defer blobSrv.Close()

	fake := &fakeEngine{blobURL: blobSrv.URL, delivered: make(chan deliverFrame, 1)}
	engineSrv := httptest.NewServer(fake.handler(t))
	defer engineSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.Nop()
	metrics := obs.NewMetrics()
	mux := usecase.NewMultiplexer(memory.NewRegistry(), &logger)
	cfg := cfgpkg.Config{EngineURL: "ws" + strings.TrimPrefix(engineSrv.URL, "http") + "/"}

	client, err := engine.Dial(ctx, cfg, &logger, metrics, mux)
	require.NoError(t, err)
	defer client.Close()

	runDone := make(chan error, 1)
	go func() { runDone <- client.Run(ctx) }()

	sid, events, err := client.CreateSession(ctx, domain.SourceDescriptor{URI: blobSrv.URL, Custom: true})
	require.NoError(t, err)
	require.EqualValues(t, 7, sid)

	f := fetcher.New(mux, &logger, 10*time.Second)
	fetchDone := make(chan struct{})
	go func() {
		f.Run(ctx, sid, events)
		close(fetchDone)
	}()

	require.NoError(t, client.Play(ctx, sid))

	select {
	case d := <-fake.delivered:
		require.Equal(t, "r1", d.RequestID)
		require.EqualValues(t, sid, d.SessionID)
		require.Equal(t, blob[:4096], d.Data)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	// teardown: disposing drains the (now empty) session and closes the stream
	require.NoError(t, client.DisposeSession(ctx, sid))
	select {
	case <-fetchDone:
	case <-time.After(5 * time.Second):
		t.Fatal("fetcher did not stop after dispose")
	}

	client.Close()
	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine read loop did not stop")
	}
}
