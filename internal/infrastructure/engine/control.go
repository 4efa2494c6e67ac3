package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"videobridge/internal/domain"
)

// callMsg is one outbound playback control call. Only the fields a method
// uses are populated.
type callMsg struct {
	Type       string                   `json:"type"`
	CallID     int64                    `json:"callId,omitempty"`
	Method     string                   `json:"method"`
	SessionID  int64                    `json:"sessionId,omitempty"`
	Source     *domain.SourceDescriptor `json:"source,omitempty"`
	PositionMs *int64                   `json:"positionMs,omitempty"`
	Value      *float64                 `json:"value,omitempty"`
	Flag       *bool                    `json:"flag,omitempty"`
}

// CreateSession asks the engine for a new playback session and opens its
// event stream. The handle is assigned by the engine.
func (c *Client) CreateSession(ctx context.Context, src domain.SourceDescriptor) (int64, <-chan domain.VideoEvent, error) {
	if err := src.Validate(); err != nil {
		return 0, nil, err
	}
	res, err := c.call(ctx, callMsg{Method: "create", Source: &src})
	if err != nil {
		return 0, nil, err
	}
	var out struct {
		SessionID int64 `json:"sessionId"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return 0, nil, fmt.Errorf("create reply: %w", err)
	}
	events, err := c.mux.Open(out.SessionID)
	if err != nil {
		return 0, nil, err
	}
	c.metrics.ActiveSessions.Inc()
	c.logger.Info().Int64("session", out.SessionID).Msg("session created")
	return out.SessionID, events, nil
}

// DisposeSession tears the session down on both sides: pending requests are
// drained (implicit cancel) and the event stream is released before the
// engine is told to dispose.
func (c *Client) DisposeSession(ctx context.Context, sessionID int64) error {
	c.closeSession(ctx, sessionID)
	return c.send(callMsg{Method: "dispose", SessionID: sessionID})
}

func (c *Client) Play(ctx context.Context, sessionID int64) error {
	return c.send(callMsg{Method: "play", SessionID: sessionID})
}

func (c *Client) Pause(ctx context.Context, sessionID int64) error {
	return c.send(callMsg{Method: "pause", SessionID: sessionID})
}

func (c *Client) SetLooping(ctx context.Context, sessionID int64, looping bool) error {
	return c.send(callMsg{Method: "setLooping", SessionID: sessionID, Flag: &looping})
}

func (c *Client) SetVolume(ctx context.Context, sessionID int64, volume float64) error {
	if volume < 0 {
		return fmt.Errorf("volume must be >= 0, got %v", volume)
	}
	return c.send(callMsg{Method: "setVolume", SessionID: sessionID, Value: &volume})
}

func (c *Client) SetPlaybackSpeed(ctx context.Context, sessionID int64, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("playback speed must be > 0, got %v", speed)
	}
	return c.send(callMsg{Method: "setPlaybackSpeed", SessionID: sessionID, Value: &speed})
}

func (c *Client) SeekTo(ctx context.Context, sessionID int64, pos time.Duration) error {
	ms := pos.Milliseconds()
	return c.send(callMsg{Method: "seekTo", SessionID: sessionID, PositionMs: &ms})
}

// GetPosition reports the engine's current playback position.
func (c *Client) GetPosition(ctx context.Context, sessionID int64) (time.Duration, error) {
	res, err := c.call(ctx, callMsg{Method: "getPosition", SessionID: sessionID})
	if err != nil {
		return 0, err
	}
	var out struct {
		PositionMs int64 `json:"positionMs"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return 0, fmt.Errorf("getPosition reply: %w", err)
	}
	return time.Duration(out.PositionMs) * time.Millisecond, nil
}

// SetMixWithOthers is engine-global, not per session.
func (c *Client) SetMixWithOthers(ctx context.Context, mix bool) error {
	return c.send(callMsg{Method: "setMixWithOthers", Flag: &mix})
}
