package xmldsig

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"
	dsig "github.com/russellhaering/goxmldsig"
)

// Canonicalizer produces the deterministic byte form the authority hashes:
// Canonical XML 1.0, no comments, with any existing Signature element
// removed first. The zero value is not usable; construct with
// NewCanonicalizer so a missing C14N implementation is a startup error
// rather than a silent fallback on the clearance path.
type Canonicalizer struct {
	c14n dsig.Canonicalizer
}

func NewCanonicalizer() (*Canonicalizer, error) {
	c := &Canonicalizer{c14n: dsig.MakeC14N10RecCanonicalizer()}

	// Probe once at construction. A broken C14N implementation must be a
	// startup error, never a per-invoice degraded mode.
	probe := etree.NewElement("probe")
	if _, err := c.c14n.Canonicalize(probe); err != nil {
		return nil, errors.Wrap(err, "canonical XML 1.0 implementation unusable")
	}
	return c, nil
}

// Canonicalize parses the document, strips ds:Signature, and serializes the
// root canonically. Two documents differing only in insignificant whitespace
// or attribute order canonicalize byte-identically.
func (c *Canonicalizer) Canonicalize(xml []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xml); err != nil {
		return nil, errors.Wrap(err, "parse document")
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}

	removeSignatures(root)
	stripInterElementWhitespace(root)

	canonical, err := c.c14n.Canonicalize(root)
	if err != nil {
		return nil, errors.Wrap(err, "canonicalize")
	}
	return canonical, nil
}

// removeSignatures walks the tree dropping any Signature element whatever
// its namespace prefix.
func removeSignatures(el *etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Tag == "Signature" {
			el.RemoveChild(child)
			continue
		}
		removeSignatures(child)
	}
}

// stripInterElementWhitespace drops whitespace-only text between child
// elements. C14N alone keeps such text, and pretty-printed input would
// otherwise hash differently from compact input.
func stripInterElementWhitespace(el *etree.Element) {
	if len(el.ChildElements()) == 0 {
		return
	}
	for _, tok := range append([]etree.Token{}, el.Child...) {
		cd, ok := tok.(*etree.CharData)
		if ok && strings.TrimSpace(cd.Data) == "" {
			el.RemoveChild(cd)
		}
	}
	for _, child := range el.ChildElements() {
		stripInterElementWhitespace(child)
	}
}

// Hash is SHA-256 over the canonical bytes, rendered lowercase hex in every
// external-facing field (the authority requires lowercase).
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// HashRaw returns the 32 digest bytes for callers that sign or re-encode.
func HashRaw(canonical []byte) []byte {
	sum := sha256.Sum256(canonical)
	return sum[:]
}
