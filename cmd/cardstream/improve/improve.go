// Package improvecmder provides the improve command, which streams card
// improvements for a prompt and renders them as they are reconciled.
package improvecmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cardstream/pkg/cliui"
	"github.com/papercomputeco/cardstream/pkg/config"
	"github.com/papercomputeco/cardstream/pkg/dotdir"
	"github.com/papercomputeco/cardstream/pkg/editblock"
	"github.com/papercomputeco/cardstream/pkg/logger"
	"github.com/papercomputeco/cardstream/pkg/proposal"
	"github.com/papercomputeco/cardstream/pkg/session"
)

// recordAuto stores the recording under the dotdir recordings folder.
const recordAuto = "auto"

type improveCommander struct {
	target       string
	path         string
	stallTimeout time.Duration
	record       string
	review       bool
	raw          bool
	debug        bool
	configDir    string
	logPretty    bool
	logJSON      bool

	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	width  int

	// mu serializes terminal output; stall advisories arrive on the
	// watchdog goroutine.
	mu      sync.Mutex
	shown   map[string]bool
	stalled bool
}

const improveLongDesc string = `Stream card improvements for a prompt.

The prompt is sent to the configured backend, which answers with a stream of
cumulative renderings. Edit proposals are printed as soon as they are
complete, and the assistant's summary is rendered once the stream ends.

The prompt is taken from the arguments, or read from stdin when no
arguments are given or the only argument is "-".

With --review, each proposal is presented for acceptance after the stream
ends. With --record, the raw event stream is written to a file that
"cardstream serve --script" can replay later.

Examples:
  cardstream improve "make the second moment punchier"
  cardstream improve --target http://localhost:3001 --review "tighten the hook"
  cardstream improve --record auto "improve the note card"
  echo "improve the intro" | cardstream improve`

const improveShortDesc string = "Stream card improvements for a prompt"

var improveFlags = []string{
	config.FlagTarget,
	config.FlagPath,
	config.FlagStallTimeout,
	config.FlagRecord,
}

func NewImproveCmd() *cobra.Command {
	cmder := &improveCommander{}

	cmd := &cobra.Command{
		Use:   "improve [prompt]",
		Short: improveShortDesc,
		Long:  improveLongDesc,
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, improveFlags)

			cmder.target = v.GetString("client.target")
			cmder.path = v.GetString("client.path")
			cmder.stallTimeout = v.GetDuration("stream.stall_timeout")
			cmder.record = v.GetString("stream.record_path")
			cmder.logPretty = v.GetBool("log.pretty")
			cmder.logJSON = v.GetBool("log.json")

			if cmder.stallTimeout <= 0 {
				return fmt.Errorf("invalid stall timeout %q: must be positive", v.GetString("stream.stall_timeout"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			prompt, err := cmder.readPrompt(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, prompt)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagPath, &cmder.path)
	config.AddDurationFlag(cmd, config.Flags, config.FlagStallTimeout, &cmder.stallTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagRecord, &cmder.record)
	cmd.Flags().BoolVar(&cmder.review, "review", false, "Accept or reject each proposal after the stream ends")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw event stream instead of rendered cards")

	return cmd
}

func (c *improveCommander) readPrompt(args []string) (string, error) {
	var prompt string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(c.in)
		if err != nil {
			return "", fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = string(b)
	} else {
		prompt = strings.Join(args, " ")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("a prompt is required")
	}
	return prompt, nil
}

func (c *improveCommander) run(ctx context.Context, prompt string) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(c.logPretty),
		logger.WithJSON(c.logJSON),
		logger.WithWriter(c.errOut),
		logger.WithComponent("improve"),
	)
	c.shown = make(map[string]bool)
	c.width = cliui.DefaultWidth
	if f, ok := c.out.(*os.File); ok {
		c.width = cliui.TerminalWidth(f)
	}

	url, err := session.JoinURL(c.target, c.path)
	if err != nil {
		return fmt.Errorf("building endpoint URL: %w", err)
	}

	rec := &recorder{}
	var recorders []io.Writer
	if c.raw {
		recorders = append(recorders, c.out)
	}
	recorders = append(recorders, rec)

	s := session.New(session.Config{
		URL:          url,
		StallTimeout: c.stallTimeout,
		Recorder:     io.MultiWriter(recorders...),
		Logger:       c.logger,
		OnUpdate:     c.onUpdate,
		OnAdvisory:   c.onAdvisory,
	})

	if c.record != "" {
		path, err := c.recordingPath(s.ID())
		if err != nil {
			return err
		}
		if err := rec.open(path); err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				c.logger.Warn("closing recording", "path", path, "error", err)
			}
		}()
		c.logger.Debug("recording stream", "path", path)
	}

	start := time.Now()
	runErr := s.Run(ctx, prompt)
	elapsed := time.Since(start)

	snap := s.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()

	if runErr != nil {
		fmt.Fprintf(c.errOut, "\n  %s %s\n\n", cliui.FailMark, cliui.ErrorStyle.Render(describeError(runErr)))
		return runErr
	}

	if c.raw {
		return nil
	}

	if brief := summaryMarkdown(snap.Buffer); brief != "" {
		rendered, err := cliui.RenderMarkdown(brief, c.width)
		if err != nil {
			c.logger.Debug("rendering summary", "error", err)
		}
		fmt.Fprint(c.out, rendered)
	}

	fmt.Fprintf(c.out, "\n  %s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(fmt.Sprintf("%d proposals", len(snap.Proposals))),
		cliui.DimStyle.Render("in "+cliui.FormatDuration(elapsed)),
	)
	if rec.path != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Recorded:"), cliui.DimStyle.Render(rec.path))
	}

	if c.review && len(snap.Proposals) > 0 {
		c.reviewProposals(s, snap.Proposals)
	}
	return nil
}

func (c *improveCommander) recordingPath(sessionID string) (string, error) {
	if c.record != recordAuto {
		return c.record, nil
	}

	path, err := dotdir.NewManager().NewRecordingPath(c.configDir, sessionID, time.Now())
	if err != nil {
		return "", fmt.Errorf("preparing recording: %w", err)
	}
	return path, nil
}

// onUpdate prints each proposal the first time it is seen.
func (c *improveCommander) onUpdate(snap session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stalled && snap.Active {
		c.stalled = false
		fmt.Fprintf(c.errOut, "  %s %s\n", cliui.SuccessMark, cliui.DimStyle.Render("stream resumed"))
	}

	if c.raw {
		return
	}

	for _, p := range snap.Proposals {
		if c.shown[p.ID] {
			continue
		}
		c.shown[p.ID] = true
		fmt.Fprintln(c.out, cliui.RenderProposal(p, c.width))
	}
}

func (c *improveCommander) onAdvisory(a session.Advisory) {
	if a.Kind != session.AdvisoryStall {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stalled = true
	fmt.Fprintf(c.errOut, "  %s %s\n", cliui.WarnMark, cliui.WarnStyle.Render(a.Message))
}

// reviewProposals asks about each proposal in turn. Input ends the review
// early on "q" or EOF, leaving the remaining proposals undecided.
func (c *improveCommander) reviewProposals(s *session.Session, ps []proposal.Proposal) {
	scanner := bufio.NewScanner(c.in)
	accepted, rejected := 0, 0

	fmt.Fprintln(c.out)
	for _, p := range ps {
		fmt.Fprintln(c.out, cliui.RenderProposal(p, c.width))
		fmt.Fprintf(c.out, "  %s ", cliui.StepStyle.Render("Accept? [y/N/q]"))

		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			break
		}

		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer == "q" {
			break
		}
		if answer == "y" || answer == "yes" {
			s.Accept(p.ID)
			accepted++
		} else {
			s.Reject(p.ID)
			rejected++
		}
	}

	final := s.Snapshot().Proposals
	kept := make([]proposal.Proposal, 0, len(final))
	for _, p := range final {
		if p.Accepted {
			kept = append(kept, p)
		}
	}

	fmt.Fprintf(c.out, "\n  %s accepted %d, rejected %d\n\n", cliui.Mark(nil), accepted, rejected)
	if len(kept) > 0 {
		fmt.Fprintln(c.out, cliui.RenderProposals(kept, c.width))
	}
}

// summaryMarkdown turns the assistant rendering into markdown for display:
// directives removed and placeholder separators turned into paragraph breaks.
func summaryMarkdown(buffer string) string {
	brief := editblock.Brief(buffer, 0)
	return strings.TrimSpace(strings.ReplaceAll(brief, "[]", "\n\n"))
}

func describeError(err error) string {
	var statusErr *session.StatusError
	switch {
	case errors.As(err, &statusErr):
		return "backend error: " + statusErr.Error()
	case errors.Is(err, session.ErrNoBody):
		return "backend answered without a stream"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}
