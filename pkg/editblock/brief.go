package editblock

import (
	"strings"

	"github.com/papercomputeco/cardstream/pkg/tags"
	"github.com/papercomputeco/cardstream/pkg/utils"
)

// placeholderPrefix is emitted by the backend at the start of every rendering.
const placeholderPrefix = "[]"

// Brief returns the chat-bubble rendering of assistant text: tags decoded,
// every complete directive removed, the leading placeholder dropped, and the
// result truncated to maxRunes (no limit when maxRunes <= 0).
func Brief(text string, maxRunes int) string {
	clean := anyBlockPattern.ReplaceAllString(tags.Decode(text), "")
	clean = strings.TrimPrefix(clean, placeholderPrefix)
	clean = strings.TrimSpace(clean)

	if maxRunes <= 0 {
		return clean
	}
	return utils.TruncateRunes(clean, maxRunes)
}
