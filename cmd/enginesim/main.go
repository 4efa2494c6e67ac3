// enginesim is a scripted stand-in for the playback engine, for demos and
// manual testing of the bridge. It serves the engine websocket endpoint plus
// a range-capable byte source the scripted fetch_data requests point at.
package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	obs "videobridge/internal/infrastructure/observability"
)

const blobSize = 64 << 10

func main() {
	addr := getEnv("SIM_ADDR", ":9106")
	logger := obs.NewLogger(getEnv("LOG_LEVEL", "info"))
	logger.Info().Str("addr", addr).Msg("starting enginesim")

	blob := makeBlob()
	sim := &simulator{logger: logger, blobURL: "http://" + hostFor(addr) + "/blob"}

	mux := http.NewServeMux()
	mux.HandleFunc("/engine", sim.handleEngine)
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "blob.bin", time.Time{}, bytes.NewReader(blob))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

type simulator struct {
	logger  *zerolog.Logger
	blobURL string

	nextSession atomic.Int64
}

// inbound mirrors the bridge's outbound frames.
type inbound struct {
	Type      string `json:"type"`
	CallID    int64  `json:"callId"`
	Method    string `json:"method"`
	SessionID int64  `json:"sessionId"`
	RequestID string `json:"requestId"`
	Data      []byte `json:"data"`
}

// simConn wraps one engine socket with serialized writes.
type simConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *simConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(15 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *simConn) reply(callID int64, result any) error {
	return c.writeJSON(map[string]any{"type": "reply", "callId": callID, "result": result})
}

func (c *simConn) event(sessionID int64, payload map[string]any) error {
	return c.writeJSON(map[string]any{"type": "event", "sessionId": sessionID, "payload": payload})
}

func (s *simulator) handleEngine(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	raw, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &simConn{conn: raw}
	defer raw.Close()
	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			s.logger.Info().Msg("bridge disconnected")
			return
		}
		var m inbound
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Warn().Err(err).Msg("bad frame")
			continue
		}
		switch m.Type {
		case "call":
			s.handleCall(c, m)
		case "deliver_data":
			s.logger.Info().Int64("session", m.SessionID).Str("request", m.RequestID).
				Int("bytes", len(m.Data)).Msg("data delivered")
			_ = c.event(m.SessionID, map[string]any{"event": "bufferingEnd"})
			_ = c.event(m.SessionID, map[string]any{"event": "completed"})
		}
	}
}

func (s *simulator) handleCall(c *simConn, m inbound) {
	switch m.Method {
	case "create":
		sid := s.nextSession.Add(1)
		s.logger.Info().Int64("session", sid).Msg("session created")
		_ = c.reply(m.CallID, map[string]any{"sessionId": sid})
	case "play":
		go s.script(c, m.SessionID)
	case "getPosition":
		_ = c.reply(m.CallID, map[string]any{"positionMs": 0})
	case "dispose":
		s.logger.Info().Int64("session", m.SessionID).Msg("session disposed")
	default:
		if m.CallID != 0 {
			_ = c.reply(m.CallID, map[string]any{})
		}
	}
}

// script plays the canned event sequence for one session: metadata, a
// buffering cycle, and one ranged fetch_data against the local blob.
func (s *simulator) script(c *simConn, sessionID int64) {
	_ = c.event(sessionID, map[string]any{
		"event":    "initialized",
		"duration": 60000,
		"width":    1280.0,
		"height":   720.0,
	})
	_ = c.event(sessionID, map[string]any{"event": "bufferingStart"})
	_ = c.event(sessionID, map[string]any{
		"event": "bufferingUpdate",
		"values": []any{
			[]any{0, 1000},
			[]any{1000, 2500},
		},
	})
	_ = c.event(sessionID, map[string]any{
		"event": "fetch_data",
		"request": map[string]any{
			"id":               uuid.NewString(),
			"url":              s.blobURL,
			"headers":          map[string]any{},
			"finished":         "false",
			"canceled":         "false",
			"data_length":      4096,
			"data_offset":      0,
			"data_request_all": "false",
		},
	})
}

func makeBlob() []byte {
	b := make([]byte, blobSize)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func hostFor(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	return addr
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
