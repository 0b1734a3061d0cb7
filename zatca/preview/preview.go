// Package preview renders non-submitting invoice previews. It deliberately
// lives outside the clearance pipeline: its input type and its stamped
// output cannot be fed to the clearance client, and the pipeline package
// does not import it. The canonical form here is a cheap line-trim, not
// C14N, so hashes from this package must never be compared with authority
// hashes.
package preview

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Document wraps preview-only XML. Constructing one is an explicit opt-in
// to the lower-trust path.
type Document struct {
	XML []byte
}

// Stamped is a preview rendering with a placeholder where a real signature
// would sit. The marker makes accidental submission visibly invalid.
type Stamped struct {
	XML         []byte
	Placeholder string
}

const placeholderValue = "PREVIEW-ONLY-NOT-A-SIGNATURE"

// Canonicalize trims each line and drops blank ones. Good enough for
// diffing two previews, nothing more.
func Canonicalize(d Document) []byte {
	lines := strings.Split(string(d.XML), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return []byte(strings.Join(out, "\n"))
}

// Hash digests the line-trimmed form, lowercase hex.
func Hash(d Document) string {
	sum := sha256.Sum256(Canonicalize(d))
	return hex.EncodeToString(sum[:])
}

// Stamp appends a visible placeholder signature comment.
func Stamp(d Document) Stamped {
	xml := append([]byte{}, d.XML...)
	xml = append(xml, []byte("\n<!-- "+placeholderValue+" -->\n")...)
	return Stamped{XML: xml, Placeholder: placeholderValue}
}
