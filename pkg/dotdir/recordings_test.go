package dotdir_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cardstream/pkg/dotdir"
)

var _ = Describe("dotdir.Manager recordings", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-rec-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewRecordingPath", func() {
		It("places captures under recordings/ with the session id", func() {
			now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
			path, err := m.NewRecordingPath(tmpDir, "abc", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Dir(path)).To(Equal(filepath.Join(tmpDir, "recordings")))
			Expect(filepath.Base(path)).To(Equal("20260304T050607.000-abc.sse"))

			info, err := os.Stat(filepath.Dir(path))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("ListRecordings", func() {
		It("returns an empty list when nothing was captured", func() {
			recs, err := m.ListRecordings(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})

		It("lists .sse files newest first and ignores others", func() {
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := range 3 {
				path, err := m.NewRecordingPath(tmpDir, "", base.Add(time.Duration(i)*time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Expect(os.WriteFile(path, []byte("data: {}\n\n"), 0o600)).To(Succeed())
			}
			Expect(os.WriteFile(filepath.Join(tmpDir, "recordings", "notes.txt"), []byte("x"), 0o600)).To(Succeed())

			recs, err := m.ListRecordings(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
			Expect(recs[0].Name).To(Equal("20260101T000200.000"))
			Expect(recs[2].Name).To(Equal("20260101T000000.000"))
			for _, r := range recs {
				Expect(strings.HasSuffix(r.Path, ".sse")).To(BeTrue())
				Expect(r.Size).To(BeNumerically(">", 0))
			}
		})
	})

	Describe("LatestRecording", func() {
		It("returns ErrNoRecordings when empty", func() {
			_, err := m.LatestRecording(tmpDir)
			Expect(err).To(MatchError(dotdir.ErrNoRecordings))
		})

		It("returns the newest capture", func() {
			older, err := m.NewRecordingPath(tmpDir, "old", time.Unix(100, 0))
			Expect(err).NotTo(HaveOccurred())
			newer, err := m.NewRecordingPath(tmpDir, "new", time.Unix(200, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(older, nil, 0o600)).To(Succeed())
			Expect(os.WriteFile(newer, nil, 0o600)).To(Succeed())

			rec, err := m.LatestRecording(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Path).To(Equal(newer))
		})
	})
})
