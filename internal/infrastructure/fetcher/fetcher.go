package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"videobridge/internal/domain"
	"videobridge/pkg/shared/redact"
)

// Deliverer accepts fetched bytes for a pending request. Satisfied by
// usecase.Multiplexer.Deliver.
type Deliverer interface {
	Deliver(ctx context.Context, sessionID int64, requestID string, headers map[string]string, data []byte) error
}

// Fetcher is the application side of the custom-source protocol: it answers
// FetchData notifications with HTTP fetches and delivers the bytes back
// through the correlator. Cancellation is cooperative: CancelFetchData
// cancels the in-flight request's context, nothing is forcibly aborted after
// the fetch completed.
type Fetcher struct {
	client  *http.Client
	deliver Deliverer
	logger  *zerolog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func New(deliver Deliverer, logger *zerolog.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		deliver:  deliver,
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Run consumes one session's event stream until it is closed. Fetches run
// concurrently with each other and with further incoming events; Run returns
// once the stream ends and all fetches finished.
func (f *Fetcher) Run(ctx context.Context, sessionID int64, events <-chan domain.VideoEvent) {
	var wg sync.WaitGroup
	for ev := range events {
		switch e := ev.(type) {
		case domain.FetchData:
			reqCtx, cancel := context.WithCancel(ctx)
			f.track(sessionID, e.Request.ID, cancel)
			wg.Add(1)
			go func(req domain.DataRequestParameters) {
				defer wg.Done()
				defer f.untrack(sessionID, req.ID)
				f.fetch(reqCtx, sessionID, req)
			}(e.Request)
		case domain.CancelFetchData:
			f.cancel(sessionID, e.Request.ID)
		}
	}
	wg.Wait()
}

func (f *Fetcher) fetch(ctx context.Context, sessionID int64, req domain.DataRequestParameters) {
	// the redirect pair, when present, replaces both URI and headers; the
	// request id stays the same and delivery still correlates on it
	uri, headers := req.URI, req.Headers
	if req.Redirect != nil {
		uri, headers = req.Redirect.URI, req.Redirect.Headers
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		f.logger.Error().Err(err).Int64("session", sessionID).Str("request", req.ID).Msg("bad fetch uri")
		return
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if rng := rangeHeader(req); rng != "" {
		httpReq.Header.Set("Range", rng)
	}
	f.logger.Debug().Int64("session", sessionID).Str("request", req.ID).Str("uri", uri).
		Interface("headers", redact.Headers(headers)).Msg("fetching")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			f.logger.Debug().Int64("session", sessionID).Str("request", req.ID).Msg("fetch canceled")
			return
		}
		f.logger.Error().Err(err).Int64("session", sessionID).Str("request", req.ID).Msg("fetch failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		f.logger.Error().Int("status", resp.StatusCode).Int64("session", sessionID).Str("request", req.ID).Msg("fetch failed")
		return
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logger.Error().Err(err).Int64("session", sessionID).Str("request", req.ID).Msg("fetch body read failed")
		return
	}

	respHeaders := map[string]string{
		"Content-Type":   resp.Header.Get("Content-Type"),
		"Content-Length": strconv.Itoa(len(data)),
	}
	// the fetch may have completed before a cancellation arrived; delivery
	// still goes through and the engine decides whether to discard it
	if err := f.deliver.Deliver(context.WithoutCancel(ctx), sessionID, req.ID, respHeaders, data); err != nil {
		if errors.Is(err, domain.ErrUnknownRequest) || errors.Is(err, domain.ErrUnknownSession) {
			// delivery raced a disposal; non-fatal during teardown
			f.logger.Debug().Err(err).Int64("session", sessionID).Str("request", req.ID).Msg("delivery raced teardown")
			return
		}
		f.logger.Error().Err(err).Int64("session", sessionID).Str("request", req.ID).Msg("delivery failed")
		return
	}
	f.logger.Debug().Int64("session", sessionID).Str("request", req.ID).Int("bytes", len(data)).Msg("delivered")
}

// rangeHeader builds the Range header for a partial request. RequestsAllData
// overrides offset/length entirely: engines for unseekable formats cannot
// express ranged requests.
func rangeHeader(req domain.DataRequestParameters) string {
	if req.RequestsAllData {
		return ""
	}
	if req.DataLength > 0 {
		return fmt.Sprintf("bytes=%d-%d", req.DataOffset, req.DataOffset+req.DataLength-1)
	}
	// negative length means total length unknown: open-ended from offset
	if req.DataOffset > 0 {
		return fmt.Sprintf("bytes=%d-", req.DataOffset)
	}
	return ""
}

func (f *Fetcher) track(sessionID int64, id string, cancel context.CancelFunc) {
	f.mu.Lock()
	f.inflight[inflightKey(sessionID, id)] = cancel
	f.mu.Unlock()
}

func (f *Fetcher) untrack(sessionID int64, id string) {
	f.mu.Lock()
	cancel := f.inflight[inflightKey(sessionID, id)]
	delete(f.inflight, inflightKey(sessionID, id))
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (f *Fetcher) cancel(sessionID int64, id string) {
	f.mu.Lock()
	cancel := f.inflight[inflightKey(sessionID, id)]
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func inflightKey(sessionID int64, id string) string {
	return strconv.FormatInt(sessionID, 10) + "/" + id
}
