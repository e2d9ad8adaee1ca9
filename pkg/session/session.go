// Package session drives one improvement stream from request to terminal
// state, feeding every frame through normalization, tag decoding, directive
// extraction and proposal reconciliation before issuing the next read.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/cardstream/pkg/logger"
	"github.com/papercomputeco/cardstream/pkg/sse"
	"github.com/papercomputeco/cardstream/pkg/stream"
	"github.com/papercomputeco/cardstream/pkg/watchdog"
)

const (
	readChunkSize    = 32 * 1024
	maxErrorBodySize = 4 * 1024

	contentTypeJSON        = "application/json"
	contentTypeEventStream = "text/event-stream"
)

// Config holds everything a session needs to reach the backend and report
// progress. Callbacks run on the session goroutine (or the watchdog
// goroutine for stall advisories) and must not block for long.
type Config struct {
	// URL is the full streaming endpoint, e.g. http://localhost:3001/api/improve.
	URL string

	// StallTimeout is the watchdog window. Non-positive means watchdog.DefaultTimeout.
	StallTimeout time.Duration

	// HTTPClient defaults to a client without an overall timeout, since
	// streams are long lived.
	HTTPClient *http.Client

	// Recorder receives a copy of every raw byte read from the stream.
	Recorder io.Writer

	Logger *slog.Logger

	OnUpdate   func(Snapshot)
	OnAdvisory func(Advisory)
}

// request is the JSON body sent to the backend.
type request struct {
	Message string `json:"message"`
}

// Session is one caller-owned stream. Create it with New, drive it with Run,
// and stop it early with Cancel.
type Session struct {
	id     string
	cfg    Config
	client *http.Client
	logger *slog.Logger

	// mu guards everything below. The watchdog goroutine only touches active
	// and the advisory callback.
	mu          sync.Mutex
	state       State
	active      bool
	rec         *Reconciler
	err         error
	cancel      context.CancelCauseFunc
	cancelCause error
	done        chan struct{}
}

// New returns an Idle session.
func New(cfg Config) *Session {
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		client: cfg.HTTPClient,
		logger: cfg.Logger,
		rec:    NewReconciler(),
		done:   make(chan struct{}),
	}
	if s.cfg.StallTimeout <= 0 {
		s.cfg.StallTimeout = watchdog.DefaultTimeout
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier used in logs and recordings.
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session reaches Finished or Failed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure cause, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns an immutable copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        s.id,
		State:     s.state,
		Active:    s.active,
		Buffer:    s.rec.Buffer(),
		Brief:     s.rec.Brief(BriefMaxRunes),
		Proposals: s.rec.Proposals(),
		Err:       s.err,
	}
}

// Accept marks a proposal accepted. Later extractions never clear it.
func (s *Session) Accept(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Accept(id)
}

// Reject removes a proposal for the rest of the session.
func (s *Session) Reject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Reject(id)
}

// Cancel stops the session with the given cause. A session cancelled before
// Run starts fails as soon as it runs.
func (s *Session) Cancel(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelCause == nil {
		s.cancelCause = cause
	}
	if s.cancel != nil {
		s.cancel(cause)
	}
}

// Run sends prompt to the backend and processes the stream until a terminal
// event, transport close, failure or cancellation. It returns nil when the
// session finishes and the failure cause otherwise. Malformed frames never
// surface here.
func (s *Session) Run(ctx context.Context, prompt string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.cancel = cancel
	if s.cancelCause != nil {
		cancel(s.cancelCause)
	}
	s.mu.Unlock()

	s.transition(StateStreaming, nil)

	req, err := s.newRequest(ctx, prompt)
	if err != nil {
		return s.fail(fmt.Errorf("building request: %w", err))
	}

	s.logger.Debug("sending improve request", "url", s.cfg.URL)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(s.transportError(ctx, fmt.Errorf("connecting to %s: %w", s.cfg.URL, err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return s.fail(&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return s.fail(ErrNoBody)
	}

	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != contentTypeEventStream {
		s.logger.Warn("unexpected content type", "content_type", resp.Header.Get("Content-Type"))
	}

	return s.consume(ctx, resp.Body)
}

func (s *Session) newRequest(ctx context.Context, prompt string) (*http.Request, error) {
	body, err := json.Marshal(request{Message: prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeEventStream)
	return req, nil
}

// consume is the read loop. Every frame of a read is fully processed before
// the next read is issued.
func (s *Session) consume(ctx context.Context, body io.Reader) error {
	wd := watchdog.New(s.cfg.StallTimeout, s.onStall)
	wd.Arm()
	defer wd.Cancel()

	var splitter sse.Splitter
	buf := make([]byte, readChunkSize)

	for {
		n, readErr := body.Read(buf)
		if ctx.Err() != nil {
			wd.Cancel()
			return s.fail(s.transportError(ctx, ctx.Err()))
		}

		if n > 0 {
			wd.Arm()
			s.markActive()

			if s.cfg.Recorder != nil {
				if _, err := s.cfg.Recorder.Write(buf[:n]); err != nil {
					s.logger.Warn("recording stream", "error", err)
				}
			}

			for _, frame := range splitter.Feed(buf[:n]) {
				if s.handleFrame(frame) {
					wd.Cancel()
					return s.finish("terminal event")
				}
			}
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			wd.Cancel()
			if splitter.Buffered() > 0 {
				s.logger.Debug("discarding undelimited trailing bytes", "bytes", splitter.Buffered())
			}
			return s.finish("transport closed")
		default:
			wd.Cancel()
			return s.fail(s.transportError(ctx, fmt.Errorf("reading stream: %w", readErr)))
		}
	}
}

// handleFrame normalizes and applies one frame, reporting whether the session
// has reached a terminal event.
func (s *Session) handleFrame(frame *sse.Event) bool {
	ev, ok := stream.Normalize(frame.Payload())
	if !ok {
		s.logger.Debug("dropping unrecognized frame", "bytes", len(frame.Data))
		return false
	}

	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return true
	}
	changed := s.rec.Apply(ev)
	finished := s.rec.Finished()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("applied event", "kind", ev.Kind.String(), "changed", changed, "proposals", len(snap.Proposals))
	if changed {
		s.notify(snap)
	}
	return finished
}

func (s *Session) onStall() {
	s.mu.Lock()
	if s.state != StateStreaming || !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Warn("stream stalled", "timeout", s.cfg.StallTimeout)
	s.advise(Advisory{
		Kind:      AdvisoryStall,
		SessionID: s.id,
		Message:   "The response seems to be taking longer than usual.",
		At:        time.Now(),
	})
	s.notify(snap)
}

func (s *Session) markActive() {
	s.mu.Lock()
	if s.state != StateStreaming || s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// transition moves the session forward. Terminal states are absorbing.
func (s *Session) transition(to State, err error) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return Snapshot{}, false
	}

	s.state = to
	s.active = to == StateStreaming
	if err != nil {
		s.err = err
	}
	if to.Terminal() {
		close(s.done)
	}
	return s.snapshotLocked(), true
}

func (s *Session) finish(reason string) error {
	snap, ok := s.transition(StateFinished, nil)
	if !ok {
		return s.Err()
	}

	s.logger.Info("stream finished", "reason", reason, "proposals", len(snap.Proposals))
	s.notify(snap)
	return nil
}

func (s *Session) fail(err error) error {
	snap, ok := s.transition(StateFailed, err)
	if !ok {
		return s.Err()
	}

	if errors.Is(err, ErrSuperseded) {
		s.logger.Debug("stream superseded")
		return err
	}

	s.logger.Error("stream failed", "error", err)
	s.advise(Advisory{
		Kind:      AdvisoryFailure,
		SessionID: s.id,
		Message:   "Something went wrong while streaming the response.",
		Err:       err,
		At:        time.Now(),
	})
	s.notify(snap)
	return err
}

// transportError replaces errors caused by cancellation with the
// cancellation cause.
func (s *Session) transportError(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}

	cause := context.Cause(ctx)
	if errors.Is(cause, ErrSuperseded) {
		return ErrSuperseded
	}
	return fmt.Errorf("stream cancelled: %w", cause)
}

func (s *Session) notify(snap Snapshot) {
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(snap)
	}
}

func (s *Session) advise(a Advisory) {
	if s.cfg.OnAdvisory != nil {
		s.cfg.OnAdvisory(a)
	}
}
