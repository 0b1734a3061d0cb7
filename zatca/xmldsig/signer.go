package xmldsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/certs"
)

var logger = logrus.WithField("component", "zatca.xmldsig")

const (
	nsXMLDSig       = "http://www.w3.org/2000/09/xmldsig#"
	algC14N10       = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	algRSASHA256    = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	algEnvelopedSig = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	algSHA256       = "http://www.w3.org/2001/04/xmlenc#sha256"
)

// SignResult carries everything the pipeline needs downstream: the signed
// document, the signature value for the safety guard, and the canonical
// digest that feeds the tenant's invoice hash chain.
type SignResult struct {
	SignedXML      []byte
	SignatureValue string
	InvoiceHash    string // lowercase hex
}

// Signer builds enveloped RSA-SHA256 signatures over the canonical form of
// an invoice document and appends them to it.
type Signer struct {
	canon *Canonicalizer
}

func NewSigner(canon *Canonicalizer) *Signer {
	return &Signer{canon: canon}
}

// Sign canonicalizes, digests, signs the digest with the tenant's private
// key and embeds the Signature element. A missing or non-RSA key is
// ErrSigningNotConfigured: no placeholder value is ever produced here.
func (s *Signer) Sign(xml []byte, asset *certs.SigningAsset) (*SignResult, error) {
	if asset == nil || asset.Key == nil || asset.Certificate == nil {
		return nil, zatca.ErrSigningNotConfigured
	}
	rsaKey, ok := asset.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: key type %T is not RSA", zatca.ErrSigningNotConfigured, asset.Key)
	}

	canonical, err := s.canon.Canonicalize(xml)
	if err != nil {
		return nil, err
	}
	digest := HashRaw(canonical)
	invoiceHash := Hash(canonical)

	sigEl, sigValue, err := s.buildSignature(digest, rsaKey, asset)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xml); err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	root.AddChild(sigEl)

	// Compact serialization: indentation would add text nodes that change
	// the canonical form the authority computes on its side.
	signed, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "serialize signed document")
	}

	logger.Debugf("signed document, digest %s", invoiceHash)

	return &SignResult{
		SignedXML:      signed,
		SignatureValue: sigValue,
		InvoiceHash:    invoiceHash,
	}, nil
}

func (s *Signer) buildSignature(digest []byte, key *rsa.PrivateKey, asset *certs.SigningAsset) (*etree.Element, string, error) {
	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", nsXMLDSig)

	signedInfo := sig.CreateElement("ds:SignedInfo")
	signedInfo.CreateAttr("xmlns:ds", nsXMLDSig)

	c14nMethod := signedInfo.CreateElement("ds:CanonicalizationMethod")
	c14nMethod.CreateAttr("Algorithm", algC14N10)

	sigMethod := signedInfo.CreateElement("ds:SignatureMethod")
	sigMethod.CreateAttr("Algorithm", algRSASHA256)

	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "")

	transforms := ref.CreateElement("ds:Transforms")
	envTransform := transforms.CreateElement("ds:Transform")
	envTransform.CreateAttr("Algorithm", algEnvelopedSig)
	c14nTransform := transforms.CreateElement("ds:Transform")
	c14nTransform.CreateAttr("Algorithm", algC14N10)

	digestMethod := ref.CreateElement("ds:DigestMethod")
	digestMethod.CreateAttr("Algorithm", algSHA256)

	digestValue := ref.CreateElement("ds:DigestValue")
	digestValue.SetText(base64.StdEncoding.EncodeToString(digest))

	// SignedInfo is itself canonicalized and signed.
	canonicalSignedInfo, err := s.canon.c14n.Canonicalize(signedInfo)
	if err != nil {
		return nil, "", errors.Wrap(err, "canonicalize SignedInfo")
	}
	signedInfoDigest := HashRaw(canonicalSignedInfo)

	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, signedInfoDigest)
	if err != nil {
		return nil, "", fmt.Errorf("%w: rsa sign failed: %v", zatca.ErrSigningNotConfigured, err)
	}
	sigValue := base64.StdEncoding.EncodeToString(signature)

	sigValueEl := sig.CreateElement("ds:SignatureValue")
	sigValueEl.SetText(sigValue)

	keyInfo := sig.CreateElement("ds:KeyInfo")
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Cert := x509Data.CreateElement("ds:X509Certificate")
	x509Cert.SetText(base64.StdEncoding.EncodeToString(asset.Certificate.Raw))

	return sig, sigValue, nil
}
