package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cardstream/pkg/proposal"
	"github.com/papercomputeco/cardstream/pkg/session"
)

var _ = Describe("Session", func() {
	var (
		c       *collector
		handler http.HandlerFunc
		server  *httptest.Server
	)

	BeforeEach(func() {
		c = &collector{}
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)
	})

	run := func(cfg session.Config) (*session.Session, error) {
		s := session.New(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s, s.Run(ctx, "make it better")
	}

	It("sends the prompt as a JSON POST asking for an event stream", func() {
		var (
			method, contentType, accept string
			body                        map[string]string
		)
		handler = func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			contentType = r.Header.Get("Content-Type")
			accept = r.Header.Get("Accept")
			_ = json.NewDecoder(r.Body).Decode(&body)
			sseHeaders(w)
			writeFrames(w, frame(map[string]any{"status": "complete"}))
		}

		_, err := run(c.config(server.URL))
		Expect(err).NotTo(HaveOccurred())
		Expect(method).To(Equal(http.MethodPost))
		Expect(contentType).To(Equal("application/json"))
		Expect(accept).To(Equal("text/event-stream"))
		Expect(body).To(Equal(map[string]string{"message": "make it better"}))
	})

	It("reconciles proposals and finishes on a terminal event", func() {
		x := card("X", "old x", "new x")
		y := card("Y", "old y", "new y")
		handler = func(w http.ResponseWriter, _ *http.Request) {
			sseHeaders(w)
			writeFrames(w,
				": connected\n\n",
				frame(streaming("[]Working")),
				frame(streaming("[]Working"+x)),
				"data: not json\n\n",
				frame(map[string]any{"type": "final_message", "message": "[]Done." + x + y}),
				frame(streaming("ignored after terminal"+card("Z", "a", "b"))),
			)
		}

		s, err := run(c.config(server.URL))
		Expect(err).NotTo(HaveOccurred())

		snap := s.Snapshot()
		Expect(snap.State).To(Equal(session.StateFinished))
		Expect(snap.Err).To(BeNil())
		Expect(snap.Brief).To(Equal("Done."))
		Expect(snap.Proposals).To(Equal([]proposal.Proposal{
			{ID: "X", Original: "old x", Suggested: "new x"},
			{ID: "Y", Original: "old y", Suggested: "new y"},
		}))
		Eventually(s.Done()).Should(BeClosed())
		Expect(c.advisoriesOf(session.AdvisoryFailure)).To(BeZero())
	})

	It("reassembles frames split across reads", func() {
		whole := frame(streaming("[]split" + card("S", "a", "b")))
		handler = func(w http.ResponseWriter, _ *http.Request) {
			sseHeaders(w)
			writeFrames(w, whole[:7], whole[7:len(whole)-1], whole[len(whole)-1:])
		}

		s, err := run(c.config(server.URL))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Snapshot().Proposals).To(HaveLen(1))
	})

	It("finishes when the transport closes without a terminal event", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			sseHeaders(w)
			writeFrames(w, frame(streaming("partial")), "data: {\"status\":\"streaming\",\"text\":\"unterminated\"}")
		}

		s, err := run(c.config(server.URL))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Snapshot().State).To(Equal(session.StateFinished))
		Expect(s.Snapshot().Buffer).To(Equal("partial"))
	})

	It("tees raw bytes to the recorder", func() {
		raw := ": connected\n\n" + frame(map[string]any{"status": "done"})
		handler = func(w http.ResponseWriter, _ *http.Request) {
			sseHeaders(w)
			writeFrames(w, raw)
		}

		var rec bytes.Buffer
		cfg := c.config(server.URL)
		cfg.Recorder = &rec
		_, err := run(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.String()).To(Equal(raw))
	})

	Describe("failures", func() {
		It("fails with a StatusError on non-200 responses", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "backend exploded", http.StatusInternalServerError)
			}

			s, err := run(c.config(server.URL))
			var statusErr *session.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Code).To(Equal(http.StatusInternalServerError))
			Expect(statusErr.Body).To(Equal("backend exploded"))

			Expect(s.Snapshot().State).To(Equal(session.StateFailed))
			Expect(s.Err()).To(MatchError(statusErr))
			Expect(c.advisoriesOf(session.AdvisoryFailure)).To(Equal(1))
		})

		It("fails with ErrNoBody on an empty response", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}

			s, err := run(c.config(server.URL))
			Expect(err).To(MatchError(session.ErrNoBody))
			Expect(s.Snapshot().State).To(Equal(session.StateFailed))
			Expect(c.advisoriesOf(session.AdvisoryFailure)).To(Equal(1))
		})

		It("fails when the backend is unreachable", func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			url := dead.URL
			dead.Close()

			s, err := run(c.config(url))
			Expect(err).To(HaveOccurred())
			Expect(s.Snapshot().State).To(Equal(session.StateFailed))
			Expect(c.advisoriesOf(session.AdvisoryFailure)).To(Equal(1))
		})

		It("refuses to run twice", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				sseHeaders(w)
				writeFrames(w, frame(map[string]any{"status": "complete"}))
			}

			s, err := run(c.config(server.URL))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Run(context.Background(), "again")).To(MatchError(session.ErrAlreadyStarted))
			Expect(s.Snapshot().State).To(Equal(session.StateFinished))
		})
	})

	Describe("stall watchdog", func() {
		It("raises exactly one stall advisory per silence and recovers on data", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				sseHeaders(w)
				writeFrames(w, frame(streaming("[]thinking")))
				time.Sleep(400 * time.Millisecond)
				writeFrames(w, frame(map[string]any{"status": "complete", "text": "[]done"}))
			}

			cfg := c.config(server.URL)
			cfg.StallTimeout = 50 * time.Millisecond

			s, err := run(cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.advisoriesOf(session.AdvisoryStall)).To(Equal(1))
			Expect(c.sawInactive()).To(BeTrue())

			snap := s.Snapshot()
			Expect(snap.State).To(Equal(session.StateFinished))
			Expect(snap.Brief).To(Equal("done"))
		})

		It("stays quiet while data keeps arriving", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				sseHeaders(w)
				for i := range 5 {
					writeFrames(w, frame(streaming(string(rune('a'+i)))))
					time.Sleep(20 * time.Millisecond)
				}
				writeFrames(w, frame(map[string]any{"status": "complete"}))
			}

			cfg := c.config(server.URL)
			cfg.StallTimeout = 300 * time.Millisecond

			_, err := run(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.advisoriesOf(session.AdvisoryStall)).To(BeZero())
		})

		It("stops watching once the session is finished", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				sseHeaders(w)
				writeFrames(w, frame(map[string]any{"status": "complete"}))
			}

			cfg := c.config(server.URL)
			cfg.StallTimeout = 30 * time.Millisecond

			_, err := run(cfg)
			Expect(err).NotTo(HaveOccurred())
			Consistently(func() int { return c.advisoriesOf(session.AdvisoryStall) }, 150*time.Millisecond).Should(BeZero())
		})
	})

	Describe("cancellation", func() {
		It("fails with the cancellation cause when cancelled mid-stream", func() {
			started := make(chan struct{})
			handler = func(w http.ResponseWriter, r *http.Request) {
				sseHeaders(w)
				writeFrames(w, frame(streaming("[]hello")))
				close(started)
				<-r.Context().Done()
			}

			s := session.New(c.config(server.URL))
			errCh := make(chan error, 1)
			go func() { errCh <- s.Run(context.Background(), "p") }()

			Eventually(started).Should(BeClosed())
			s.Cancel(session.ErrSuperseded)

			var err error
			Eventually(errCh).Should(Receive(&err))
			Expect(err).To(MatchError(session.ErrSuperseded))
			Expect(s.Snapshot().State).To(Equal(session.StateFailed))
			Expect(c.advisoriesOf(session.AdvisoryFailure)).To(BeZero())
		})

		It("fails immediately when cancelled before running", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				sseHeaders(w)
				writeFrames(w, frame(map[string]any{"status": "complete"}))
			}

			s := session.New(c.config(server.URL))
			s.Cancel(session.ErrSuperseded)
			Expect(s.Run(context.Background(), "p")).To(MatchError(session.ErrSuperseded))
		})

		It("wraps parent context cancellation", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				sseHeaders(w)
				writeFrames(w, ": connected\n\n")
				<-r.Context().Done()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			s := session.New(c.config(server.URL))
			err := s.Run(ctx, "p")
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(s.Snapshot().State).To(Equal(session.StateFailed))
		})
	})
})

var _ = Describe("Client", func() {
	It("supersedes the in-flight session when a new one starts", func() {
		handler := func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			sseHeaders(w)
			if body["message"] == "slow" {
				writeFrames(w, frame(streaming("[]slow"+card("OLD", "a", "b"))))
				<-r.Context().Done()
				return
			}
			writeFrames(w, frame(map[string]any{"status": "complete", "text": "[]fast" + card("NEW", "c", "d")}))
		}
		server := httptest.NewServer(http.HandlerFunc(handler))
		DeferCleanup(server.Close)

		c := &collector{}
		client := session.NewClient(c.config(server.URL))

		first := client.Start(context.Background(), "slow")
		Eventually(func() int { return len(first.Snapshot().Proposals) }).Should(Equal(1))

		second := client.Start(context.Background(), "fast")
		Expect(client.Current()).To(BeIdenticalTo(second))

		Eventually(first.Done()).Should(BeClosed())
		Expect(first.Err()).To(MatchError(session.ErrSuperseded))
		Expect(first.Snapshot().State).To(Equal(session.StateFailed))

		Eventually(second.Done()).Should(BeClosed())
		Expect(second.Err()).NotTo(HaveOccurred())
		Expect(second.Snapshot().Proposals).To(Equal([]proposal.Proposal{
			{ID: "NEW", Original: "c", Suggested: "d"},
		}))
		Expect(c.advisoriesOf(session.AdvisoryFailure)).To(BeZero())
	})

	It("routes accept and reject to the current session", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			sseHeaders(w)
			writeFrames(w, frame(map[string]any{"status": "complete", "text": card("A", "1", "2") + card("B", "3", "4")}))
		}))
		DeferCleanup(server.Close)

		client := session.NewClient(session.Config{URL: server.URL})
		s := client.Start(context.Background(), "p")
		Eventually(s.Done()).Should(BeClosed())

		Expect(s.Accept("A")).To(BeTrue())
		Expect(s.Reject("B")).To(BeTrue())
		Expect(s.Accept("missing")).To(BeFalse())
		Expect(s.Snapshot().Proposals).To(Equal([]proposal.Proposal{
			{ID: "A", Original: "1", Suggested: "2", Accepted: true},
		}))
	})

	It("joins target and path", func() {
		u, err := session.JoinURL("http://localhost:3001", "/api/improve")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal("http://localhost:3001/api/improve"))
	})
})
