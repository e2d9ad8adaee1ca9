// Package servecmder provides the serve command, which runs the scripted
// fixture backend.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cardstream/pkg/config"
	"github.com/papercomputeco/cardstream/pkg/dotdir"
	"github.com/papercomputeco/cardstream/pkg/fixture"
	"github.com/papercomputeco/cardstream/pkg/logger"
)

// scriptLatest replays the newest recording in the dotdir.
const scriptLatest = "latest"

type serveCommander struct {
	listen    string
	interval  time.Duration
	script    string
	logFile   string
	debug     bool
	configDir string
	logPretty bool
	logJSON   bool

	logger *slog.Logger
}

const serveLongDesc string = `Run the scripted fixture backend.

The fixture server answers POST /api/improve with a Server-Sent Events stream
replayed from a script, one event per interval, followed by a completion
event. GET /healthz reports the loaded script.

Scripts are YAML or JSON files holding an events list, or .sse recordings
captured with "cardstream improve --record". Use --script latest to replay
the newest recording in the .cardstream/recordings directory.

Examples:
  cardstream serve
  cardstream serve --listen :4000 --interval 250ms
  cardstream serve --script ./slow-stream.yaml
  cardstream serve --script latest`

const serveShortDesc string = "Run the scripted fixture backend"

var serveFlags = []string{
	config.FlagListen,
	config.FlagInterval,
	config.FlagScript,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("fixture.listen")
			cmder.interval = v.GetDuration("fixture.interval")
			cmder.script = v.GetString("fixture.script")
			cmder.logPretty = v.GetBool("log.pretty")
			cmder.logJSON = v.GetBool("log.json")

			if cmder.interval <= 0 {
				return fmt.Errorf("invalid interval %q: must be positive", v.GetString("fixture.interval"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			var closeLog func() error
			var err error
			cmder.logger, closeLog, err = cmder.newLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddDurationFlag(cmd, config.Flags, config.FlagInterval, &cmder.interval)
	config.AddStringFlag(cmd, config.Flags, config.FlagScript, &cmder.script)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// newLogger writes human output to stderr and, with --log-file, JSON records
// to the file as well.
func (c *serveCommander) newLogger(cmd *cobra.Command) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(c.logPretty),
		logger.WithJSON(c.logJSON),
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithComponent("fixture"),
	)
	if c.logFile == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
		logger.WithComponent("fixture"),
	)
	return logger.Tee(console, file), f.Close, nil
}

func (c *serveCommander) run(ctx context.Context) error {
	script, err := c.loadScript()
	if err != nil {
		return err
	}

	srv, err := fixture.New(fixture.Config{
		ListenAddr: c.listen,
		Interval:   c.interval,
		Script:     script,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating fixture server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("fixture server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down", "reason", context.Cause(ctx))
		return srv.Shutdown()
	}
}

func (c *serveCommander) loadScript() (*fixture.Script, error) {
	switch c.script {
	case "":
		return fixture.DefaultScript(), nil

	case scriptLatest:
		rec, err := dotdir.NewManager().LatestRecording(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("finding latest recording: %w", err)
		}
		c.logger.Info("replaying recording", "path", rec.Path, "size", rec.Size)
		return fixture.LoadScript(rec.Path)

	default:
		return fixture.LoadScript(c.script)
	}
}
