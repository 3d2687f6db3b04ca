package card

import (
	"strings"

	"github.com/google/uuid"
)

// NewKey mints a card key as "<prefix>_<8 hex chars>". The prefix is
// lowercased so keys stay valid solver constants.
func NewKey(prefix string) string {
	if prefix == "" {
		prefix = "card"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToLower(prefix) + "_" + id[:8]
}
