package contexthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/lexihash/internal/domain"
)

// Length is the number of hex characters kept from the digest.
const Length = 16

// separator joins sentence and translation. It cannot occur in normal text,
// so ("ab", "c") and ("a", "bc") never collide.
const separator = "\x1f"

// Normalize joins the example's sentence and translation after trimming
// surrounding whitespace and normalizing line endings. Case and emphasis
// markers are kept: they are part of the example's identity.
func Normalize(ex domain.Example) string {
	normalizePart := func(part string) string {
		p := strings.ReplaceAll(part, "\r\n", "\n")
		return strings.TrimSpace(p)
	}
	return normalizePart(ex.Sentence) + separator + normalizePart(ex.Translation)
}

// Hash returns the content hash identifying an example: the first Length hex
// characters of the SHA-256 digest of its normalized text.
func Hash(ex domain.Example) string {
	sum := sha256.Sum256([]byte(Normalize(ex)))
	return hex.EncodeToString(sum[:])[:Length]
}

// HashPtr is Hash for an optional example. It returns nil when ex is nil.
func HashPtr(ex *domain.Example) *string {
	if ex == nil {
		return nil
	}
	h := Hash(*ex)
	return &h
}
