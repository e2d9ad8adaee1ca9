package fixture

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/cardstream/pkg/logger"
)

const (
	// DefaultInterval spaces scripted frames when Config.Interval is unset.
	DefaultInterval = 100 * time.Millisecond

	// ImprovePath is the streaming endpoint.
	ImprovePath = "/api/improve"

	// HealthPath answers liveness probes.
	HealthPath = "/healthz"

	connectedComment = ": connected\n\n"
)

// streamEnd is sent after the script to signal that nothing more follows.
var streamEnd = []byte(`{"status":"complete"}`)

// Config is the fixture server configuration.
type Config struct {
	// ListenAddr is the address Run listens on, e.g. ":3001".
	ListenAddr string

	// Interval is the delay between frames.
	Interval time.Duration

	// Script is replayed for every request. Nil means DefaultScript().
	Script *Script

	Logger *slog.Logger
}

type improveRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Script  string `json:"script"`
	Events  int    `json:"events"`
	Streams int64  `json:"streams"`
}

// Server replays a Script as an SSE stream on POST /api/improve.
type Server struct {
	config  Config
	logger  *slog.Logger
	app     *fiber.App
	streams atomic.Int64
}

// New creates a Server. It returns ErrEmptyScript for a script without events.
func New(config Config) (*Server, error) {
	if config.Script == nil {
		config.Script = DefaultScript()
	}
	if config.Script.Len() == 0 {
		return nil, ErrEmptyScript
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: config.Logger,
		app:    app,
	}

	app.Get(HealthPath, s.handleHealth)
	app.Post(ImprovePath, s.handleImprove)

	return s, nil
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting fixture server",
		"listen", s.config.ListenAddr,
		"script", s.config.Script.Name,
		"events", s.config.Script.Len(),
		"interval", s.config.Interval,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting fixture server",
		"listen", listener.Addr().String(),
		"script", s.config.Script.Name,
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Handler adapts the server to net/http. Responses are buffered by the
// adaptor, so frames arrive together rather than spaced by the interval.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:  "ok",
		Script:  s.config.Script.Name,
		Events:  s.config.Script.Len(),
		Streams: s.streams.Load(),
	})
}

func (s *Server) handleImprove(c *fiber.Ctx) error {
	var req improveRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message is required"})
	}

	id := s.streams.Add(1)
	s.logger.Debug("streaming script", "stream", id, "prompt_len", len(req.Message))

	c.Set(fiber.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache, no-transform")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// io.Pipe gives per-frame chunked flushing; fasthttp's body stream writer
	// would buffer frames until the handler returns.
	pr, pw := io.Pipe()
	go s.replay(id, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// replay writes the script to pw, one frame per interval. It stops early when
// the client goes away and the pipe is closed.
func (s *Server) replay(id int64, pw *io.PipeWriter) {
	defer pw.Close()

	if _, err := io.WriteString(pw, connectedComment); err != nil {
		s.logClientGone(id, err)
		return
	}

	payloads := slices.Concat(s.config.Script.Payloads, [][]byte{streamEnd})
	for i, p := range payloads {
		if i > 0 {
			time.Sleep(s.config.Interval)
		}
		if err := writeFrame(pw, p); err != nil {
			s.logClientGone(id, err)
			return
		}
	}

	s.logger.Debug("script complete", "stream", id, "frames", len(payloads))
}

func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	_, err := w.Write(frame)
	return err
}

func (s *Server) logClientGone(id int64, err error) {
	if errors.Is(err, io.ErrClosedPipe) {
		s.logger.Debug("client disconnected", "stream", id)
		return
	}
	s.logger.Warn("writing stream", "stream", id, "error", err)
}
