// Package fixture serves a scripted improvement stream over SSE so the client
// can be exercised without the real backend.
package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/cardstream/pkg/sse"
)

// ErrEmptyScript is returned when a script has no events to replay.
var ErrEmptyScript = errors.New("script has no events")

//go:embed default_script.yaml
var defaultScript []byte

// Script is an ordered list of frame payloads, each sent as one data frame.
type Script struct {
	Name     string
	Payloads [][]byte
}

// Len returns the number of scripted frames.
func (s *Script) Len() int {
	return len(s.Payloads)
}

// scriptFile is the on-disk YAML/JSON layout.
type scriptFile struct {
	Name   string           `yaml:"name" json:"name"`
	Events []map[string]any `yaml:"events" json:"events"`
}

// DefaultScript returns the built-in demo conversation: streaming text, two
// edit cards, a final message and a truncated completion carrying ids.
func DefaultScript() *Script {
	s, err := ParseYAML(defaultScript)
	if err != nil {
		panic(fmt.Sprintf("embedded default script: %v", err))
	}
	return s
}

// LoadScript reads a script from path. The format follows the extension:
// .yaml/.yml and .json hold an events list, .sse is a raw stream recording.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}

	var s *Script
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		s, err = ParseYAML(data)
	case ".json":
		s, err = ParseJSON(data)
	case ".sse":
		s, err = ParseRecording(data)
	default:
		return nil, fmt.Errorf("unsupported script extension %q (want .yaml, .yml, .json or .sse)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading script %s: %w", path, err)
	}

	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// ParseYAML parses the YAML script layout.
func ParseYAML(data []byte) (*Script, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML script: %w", err)
	}
	return f.compile()
}

// ParseJSON parses the JSON script layout.
func ParseJSON(data []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing JSON script: %w", err)
	}
	return f.compile()
}

// ParseRecording replays the data frames of a raw stream capture verbatim,
// including a final frame that lacks its delimiter.
func ParseRecording(data []byte) (*Script, error) {
	s := &Script{}

	r := sse.NewReader(bytes.NewReader(data), nil)
	for ev, err := range r.Frames() {
		if err != nil {
			return nil, fmt.Errorf("reading recording: %w", err)
		}
		s.Payloads = append(s.Payloads, []byte(ev.Data))
	}

	if s.Len() == 0 {
		return nil, ErrEmptyScript
	}
	return s, nil
}

func (f scriptFile) compile() (*Script, error) {
	if len(f.Events) == 0 {
		return nil, ErrEmptyScript
	}

	s := &Script{Name: f.Name, Payloads: make([][]byte, 0, len(f.Events))}
	for i, ev := range f.Events {
		b, err := encodePayload(ev)
		if err != nil {
			return nil, fmt.Errorf("encoding event %d: %w", i, err)
		}
		s.Payloads = append(s.Payloads, b)
	}
	return s, nil
}

// encodePayload marshals v on one line, leaving markup unescaped as the
// backend does.
func encodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
