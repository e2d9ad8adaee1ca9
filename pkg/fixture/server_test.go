package fixture_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cardstream/pkg/fixture"
	"github.com/papercomputeco/cardstream/pkg/sse"
)

func improveRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, fixture.ImprovePath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("Server", func() {
	var srv *fixture.Server

	BeforeEach(func() {
		var err error
		srv, err = fixture.New(fixture.Config{Interval: time.Millisecond})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an empty script", func() {
		_, err := fixture.New(fixture.Config{Script: &fixture.Script{Name: "empty"}})
		Expect(err).To(MatchError(fixture.ErrEmptyScript))
	})

	Describe("GET /healthz", func() {
		It("reports the loaded script", func() {
			resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, fixture.HealthPath, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var health map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&health)).To(Succeed())
			Expect(health).To(HaveKeyWithValue("status", "ok"))
			Expect(health).To(HaveKeyWithValue("script", "note-card-demo"))
			Expect(health).To(HaveKeyWithValue("events", BeNumerically("==", 9)))
		})
	})

	Describe("POST /api/improve", func() {
		DescribeTable("rejects requests without a message",
			func(body string) {
				resp, err := srv.App().Test(improveRequest(body), -1)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				raw, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(raw).To(MatchJSON(`{"error":"message is required"}`))
			},
			Entry("empty message", `{"message":""}`),
			Entry("blank message", `{"message":"   "}`),
			Entry("missing field", `{}`),
			Entry("invalid JSON", `{"message":`),
		)

		It("streams the script as SSE frames", func() {
			resp, err := srv.App().Test(improveRequest(`{"message":"improve my cards"}`), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream; charset=utf-8"))
			Expect(resp.Header.Get("Cache-Control")).To(ContainSubstring("no-cache"))

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(HavePrefix(": connected\n\n"))

			var frames []*sse.Event
			for ev, err := range sse.NewReader(strings.NewReader(string(raw)), nil).Frames() {
				Expect(err).NotTo(HaveOccurred())
				frames = append(frames, ev)
			}

			script := fixture.DefaultScript()
			Expect(frames).To(HaveLen(script.Len() + 1))
			for i, p := range script.Payloads {
				Expect(frames[i].Data).To(Equal(string(p)))
			}
			Expect(frames[len(frames)-1].Data).To(MatchJSON(`{"status":"complete"}`))
		})

		It("replays a custom script", func() {
			script, err := fixture.ParseYAML([]byte(`
name: tiny
events:
  - status: streaming
    text: "[]hello"
`))
			Expect(err).NotTo(HaveOccurred())

			srv, err := fixture.New(fixture.Config{Script: script, Interval: time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			resp, err := srv.App().Test(improveRequest(`{"message":"hi"}`), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(": connected\n\n" +
				`data: {"status":"streaming","text":"[]hello"}` + "\n\n" +
				`data: {"status":"complete"}` + "\n\n"))
		})
	})
})
