package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeTrimsLines(t *testing.T) {
	d := Document{XML: []byte("  <Invoice>\n\n   <ID>1</ID>  \n</Invoice>  ")}
	assert.Equal(t, "<Invoice>\n<ID>1</ID>\n</Invoice>", string(Canonicalize(d)))
}

func TestHashStableUnderIndentation(t *testing.T) {
	d1 := Document{XML: []byte("<Invoice>\n<ID>1</ID>\n</Invoice>")}
	d2 := Document{XML: []byte("  <Invoice>\n      <ID>1</ID>\n  </Invoice>")}
	assert.Equal(t, Hash(d1), Hash(d2))
}

func TestStampIsVisiblyNotASignature(t *testing.T) {
	s := Stamp(Document{XML: []byte("<Invoice/>")})
	assert.Contains(t, string(s.XML), "PREVIEW-ONLY-NOT-A-SIGNATURE")
	assert.Equal(t, "PREVIEW-ONLY-NOT-A-SIGNATURE", s.Placeholder)
}
