package deal

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a content hash of the assumptions and mode, suitable as a
// cache key. Equal inputs always produce equal fingerprints.
func Fingerprint(a Assumptions, mode Mode) string {
	// Go-syntax formatting has a fixed field order and, unlike JSON, keeps
	// NaN and Inf in fields the mode never validates.
	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "%#v|%s", a, mode)
	return strconv.FormatUint(h.Sum64(), 16)
}
