// Package editblock extracts <edit_card> directives from assistant text.
//
// A directive looks like:
//
//	<edit_card>
//	cardid:30aebfb2-8072-4b73-9c3f-116183ef52e1
//	old_text:Noob suddenly pulls out a bed
//	new_text:Noob casually pulls out a bed
//	</edit_card>
//
// Extraction is a pure function of its input: it keeps no scan position
// between calls, so it can be re-run on every cumulative rendering of the
// stream and rediscovers earlier directives along with newly completed ones.
package editblock

import (
	"regexp"
	"strings"

	"github.com/papercomputeco/cardstream/pkg/proposal"
)

const (
	OpenMarker  = "<edit_card>"
	CloseMarker = "</edit_card>"
)

var (
	blockPattern = regexp.MustCompile(
		`<edit_card>\s*cardid:([^\n]+)\nold_text:([\s\S]*?)\nnew_text:([\s\S]*?)\n</edit_card>`,
	)
	anyBlockPattern = regexp.MustCompile(`<edit_card>[\s\S]*?</edit_card>`)
)

// Extract returns one proposal per complete directive in text, in order of
// appearance. text must already be tag-decoded. Directives without a closing
// marker are ignored; if no closing marker exists at all, Extract returns nil
// without scanning.
func Extract(text string) []proposal.Proposal {
	if !strings.Contains(text, CloseMarker) {
		return nil
	}

	matches := blockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]proposal.Proposal, 0, len(matches))
	for _, m := range matches {
		out = append(out, proposal.Proposal{
			ID:        strings.TrimSpace(m[1]),
			Original:  unquote(m[2]),
			Suggested: unquote(m[3]),
		})
	}
	return out
}

// unquote trims surrounding whitespace and then one leading and one trailing
// run of double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, `"`)
	return strings.TrimRight(s, `"`)
}
