package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"videobridge/internal/adapters/decoders/videoevent"
	"videobridge/internal/domain"
	"videobridge/internal/infrastructure/config"
	obs "videobridge/internal/infrastructure/observability"
	"videobridge/internal/usecase"
)

// envelope is one frame on the engine socket, both directions. Inbound frames
// are "event" (tagged payload for a session) or "reply" (to an outbound
// call); outbound frames are "call" and "deliver_data".
type envelope struct {
	Type      string          `json:"type"`
	SessionID int64           `json:"sessionId,omitempty"`
	Payload   map[string]any  `json:"payload,omitempty"`
	CallID    int64           `json:"callId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type deliverMsg struct {
	Type      string            `json:"type"`
	SessionID int64             `json:"sessionId"`
	RequestID string            `json:"requestId"`
	Headers   map[string]string `json:"headers,omitempty"`
	Data      []byte            `json:"data"`
}

// Client is the websocket transport to the playback engine. It decodes the
// inbound tagged event stream into the multiplexer and implements
// usecase.DataSink for outbound deliveries.
type Client struct {
	conn    *websocket.Conn
	logger  *zerolog.Logger
	metrics *obs.Metrics
	mux     *usecase.Multiplexer

	// serialize writes; deliveries and control calls come from many goroutines
	wmu sync.Mutex

	cmu      sync.Mutex
	calls    map[int64]chan envelope
	nextCall int64

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the engine endpoint and binds the client as the
// multiplexer's delivery sink. Run must be started afterwards.
func Dial(ctx context.Context, cfg config.Config, logger *zerolog.Logger, metrics *obs.Metrics, mux *usecase.Multiplexer) (*Client, error) {
	u, err := url.Parse(cfg.EngineURL)
	if err != nil {
		return nil, fmt.Errorf("engine url: %w", err)
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext:   (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
	}
	if u.Scheme == "wss" && cfg.InsecureTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	conn, resp, err := dialer.DialContext(ctx, cfg.EngineURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("dial engine %s: %w", cfg.EngineURL, err)
	}
	c := &Client{
		conn:    conn,
		logger:  logger,
		metrics: metrics,
		mux:     mux,
		calls:   make(map[int64]chan envelope),
		done:    make(chan struct{}),
	}
	mux.SetSink(c)
	logger.Info().Str("engine", cfg.EngineURL).Msg("connected to engine")
	return c, nil
}

// Run pumps the inbound event stream until the socket closes. Stream end is
// a normal terminal condition: every remaining session is disposed and its
// pending requests drained.
func (c *Client) Run(ctx context.Context) error {
	defer c.shutdown(ctx)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("engine read: %w", err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn().Err(err).Msg("dropping unparseable engine frame")
			continue
		}
		switch env.Type {
		case "event":
			c.handleEvent(ctx, env)
		case "reply":
			c.handleReply(env)
		default:
			c.logger.Warn().Str("type", env.Type).Msg("dropping engine frame of unknown type")
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, env envelope) {
	ev, err := videoevent.Decode(env.Payload)
	if err != nil {
		// single malformed event is isolated; the stream continues
		c.metrics.DecodeErrorsTotal.Inc()
		c.logger.Warn().Err(err).Int64("session", env.SessionID).Msg("dropping malformed event")
		return
	}
	c.metrics.EventsTotal.WithLabelValues(videoevent.Kind(ev)).Inc()
	if err := c.mux.OnEngineEvent(ctx, env.SessionID, ev); err != nil {
		c.logger.Warn().Err(err).Int64("session", env.SessionID).
			Str("kind", videoevent.Kind(ev)).Msg("event not routed")
		return
	}
	if _, ok := ev.(domain.FetchData); ok {
		c.metrics.PendingRequests.Inc()
	}
}

func (c *Client) handleReply(env envelope) {
	c.cmu.Lock()
	ch := c.calls[env.CallID]
	delete(c.calls, env.CallID)
	c.cmu.Unlock()
	if ch == nil {
		c.logger.Warn().Int64("callId", env.CallID).Msg("reply for unknown call")
		return
	}
	ch <- env
}

// DeliverData implements usecase.DataSink: the single outward correlator
// call, forwarding resolved bytes to the engine.
func (c *Client) DeliverData(ctx context.Context, sessionID int64, requestID string, headers map[string]string, data []byte) error {
	msg := deliverMsg{
		Type:      "deliver_data",
		SessionID: sessionID,
		RequestID: requestID,
		Headers:   headers,
		Data:      data,
	}
	if err := c.writeJSON(msg); err != nil {
		return fmt.Errorf("deliver %s: %w", requestID, err)
	}
	c.metrics.DeliveriesTotal.Inc()
	c.metrics.DeliveredBytesTotal.Add(float64(len(data)))
	c.metrics.PendingRequests.Dec()
	return nil
}

// Close shuts the socket down. Run returns once the read loop notices.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
			time.Now().Add(2*time.Second))
		_ = c.conn.Close()
	})
}

func (c *Client) shutdown(ctx context.Context) {
	c.Close()
	// fail outstanding control calls
	c.cmu.Lock()
	for id, ch := range c.calls {
		delete(c.calls, id)
		ch <- envelope{CallID: id, Error: "engine connection closed"}
	}
	c.cmu.Unlock()
	// implicit disposal of every session's pending requests
	for _, s := range c.mux.Sessions(ctx) {
		c.closeSession(ctx, s.ID)
	}
	c.logger.Info().Msg("engine stream closed")
}

func (c *Client) closeSession(ctx context.Context, sessionID int64) {
	drained, err := c.mux.Dispose(ctx, sessionID)
	if err != nil {
		return
	}
	c.metrics.ActiveSessions.Dec()
	if n := len(drained); n > 0 {
		c.metrics.DrainedRequestsTotal.Add(float64(n))
		c.metrics.PendingRequests.Sub(float64(n))
	}
}

func (c *Client) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(15 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// call sends a control call that expects a reply and waits for it.
func (c *Client) call(ctx context.Context, msg callMsg) (json.RawMessage, error) {
	c.cmu.Lock()
	c.nextCall++
	id := c.nextCall
	ch := make(chan envelope, 1)
	c.calls[id] = ch
	c.cmu.Unlock()

	msg.Type = "call"
	msg.CallID = id
	if err := c.writeJSON(msg); err != nil {
		c.cmu.Lock()
		delete(c.calls, id)
		c.cmu.Unlock()
		return nil, err
	}
	select {
	case env := <-ch:
		if env.Error != "" {
			return nil, fmt.Errorf("engine: %s: %s", msg.Method, env.Error)
		}
		return env.Result, nil
	case <-ctx.Done():
		c.cmu.Lock()
		delete(c.calls, id)
		c.cmu.Unlock()
		return nil, ctx.Err()
	case <-c.done:
		return nil, errors.New("engine connection closed")
	}
}

// send fires a control call that expects no reply.
func (c *Client) send(msg callMsg) error {
	msg.Type = "call"
	return c.writeJSON(msg)
}
