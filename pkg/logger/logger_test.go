package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cardstream/pkg/logger"
)

// decodeLine parses one JSON log record.
func decodeLine(line string) map[string]any {
	var rec map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(line)), &rec)).To(Succeed())
	return rec
}

// failingHandler accepts every record and fails to write it.
type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

var _ = Describe("New", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("writes slog text by default", func() {
		logger.New(logger.WithWriter(buf)).Info("stream finished", "proposals", 2)

		Expect(buf.String()).To(ContainSubstring("msg=\"stream finished\""))
		Expect(buf.String()).To(ContainSubstring("proposals=2"))
	})

	DescribeTable("debug records",
		func(debug bool, visible bool) {
			logger.New(logger.WithWriter(buf), logger.WithDebug(debug)).Debug("applied event")
			if visible {
				Expect(buf.String()).To(ContainSubstring("applied event"))
			} else {
				Expect(buf.String()).To(BeEmpty())
			}
		},
		Entry("are shown with debug", true, true),
		Entry("are hidden without debug", false, false),
	)

	It("writes JSON records", func() {
		logger.New(logger.WithWriter(buf), logger.WithJSON(true)).Warn("stream stalled", "timeout", "2s")

		rec := decodeLine(buf.String())
		Expect(rec).To(HaveKeyWithValue("msg", "stream stalled"))
		Expect(rec).To(HaveKeyWithValue("level", "WARN"))
		Expect(rec).To(HaveKeyWithValue("timeout", "2s"))
	})

	It("prefers pretty output over JSON", func() {
		logger.New(logger.WithWriter(buf), logger.WithPretty(true), logger.WithJSON(true)).Info("replaying recording")

		Expect(buf.String()).To(ContainSubstring("replaying recording"))
		Expect(strings.TrimSpace(buf.String())).NotTo(HavePrefix("{"))
	})

	It("fans out to several writers", func() {
		var other bytes.Buffer
		logger.New(logger.WithWriter(buf, &other)).Info("both")

		Expect(buf.String()).To(ContainSubstring("both"))
		Expect(other.String()).To(ContainSubstring("both"))
	})

	It("tags records with the component", func() {
		logger.New(logger.WithWriter(buf), logger.WithJSON(true), logger.WithComponent("fixture")).Info("started")

		Expect(decodeLine(buf.String())).To(HaveKeyWithValue("component", "fixture"))
	})

	It("reports the caller with source enabled", func() {
		logger.New(logger.WithWriter(buf), logger.WithJSON(true), logger.WithSource(true)).Info("here")

		Expect(decodeLine(buf.String())).To(HaveKey("source"))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		l := logger.Nop()
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			Expect(l.Enabled(context.Background(), level)).To(BeFalse())
		}
		Expect(func() { l.With("k", "v").WithGroup("g").Error("ignored") }).NotTo(Panic())
	})
})

var _ = Describe("Tee", func() {
	It("sends each record to every logger", func() {
		var text, js bytes.Buffer
		l := logger.Tee(
			logger.New(logger.WithWriter(&text)),
			logger.New(logger.WithWriter(&js), logger.WithJSON(true)),
		)

		l.Info("shutting down", "reason", "signal")

		Expect(text.String()).To(ContainSubstring("shutting down"))
		Expect(decodeLine(js.String())).To(HaveKeyWithValue("reason", "signal"))
	})

	It("respects each logger's level", func() {
		var quiet, verbose bytes.Buffer
		l := logger.Tee(
			logger.New(logger.WithWriter(&quiet)),
			logger.New(logger.WithWriter(&verbose), logger.WithDebug(true)),
		)

		l.Debug("frame")

		Expect(quiet.String()).To(BeEmpty())
		Expect(verbose.String()).To(ContainSubstring("frame"))
	})

	It("carries attributes and groups to every handler", func() {
		var a, b bytes.Buffer
		l := logger.Tee(
			logger.New(logger.WithWriter(&a), logger.WithJSON(true)),
			logger.New(logger.WithWriter(&b), logger.WithJSON(true)),
		)

		l.With("session_id", "abc").WithGroup("http").Info("request", "status", 200)

		for _, out := range []string{a.String(), b.String()} {
			rec := decodeLine(out)
			Expect(rec).To(HaveKeyWithValue("session_id", "abc"))
			Expect(rec).To(HaveKeyWithValue("http", HaveKeyWithValue("status", BeNumerically("==", 200))))
		}
	})

	It("keeps writing after a handler fails", func() {
		var buf bytes.Buffer
		l := logger.Tee(
			slog.New(failingHandler{}),
			logger.New(logger.WithWriter(&buf)),
		)

		l.Info("still delivered")

		Expect(buf.String()).To(ContainSubstring("still delivered"))
	})
})
