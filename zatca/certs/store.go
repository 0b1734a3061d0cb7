package certs

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/mutex"
)

var logger = logrus.WithField("component", "zatca.certs")

// SigningAsset is the per-tenant, per-environment key/cert pair consumed by
// the signer. Loaded fresh for every signing call; nothing is cached so a
// rotated certificate takes effect immediately.
type SigningAsset struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
	Environment zatca.Environment
}

// Store supplies signing assets. The pipeline depends on this interface so
// tests can inject in-memory fakes.
type Store interface {
	Load(tenantID string, env zatca.Environment) (*SigningAsset, error)
	Put(tenantID string, env zatca.Environment, certPEM, keyPEM, password []byte) error
}

// FileStore keeps one PEM pair per tenant+environment under a base
// directory. A keyed RW mutex serializes rotation against concurrent reads
// for the same tenant so a signer never sees a half-written pair.
type FileStore struct {
	baseDir string
	locks   mutex.KeyedRWMutex[string]
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) certPath(tenantID string, env zatca.Environment) string {
	return filepath.Join(s.baseDir, tenantID, env.String(), "cert.pem")
}

func (s *FileStore) keyPath(tenantID string, env zatca.Environment) string {
	return filepath.Join(s.baseDir, tenantID, env.String(), "key.pem")
}

func lockKey(tenantID string, env zatca.Environment) string {
	return tenantID + "/" + env.String()
}

func (s *FileStore) Load(tenantID string, env zatca.Environment) (*SigningAsset, error) {
	key := lockKey(tenantID, env)
	s.locks.RLock(key)
	defer s.locks.RUnlock(key)

	signer, err := LoadSignerFromFile(s.keyPath(tenantID, env), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", zatca.ErrSigningNotConfigured, err)
	}
	cert, err := LoadCertificateFromFile(s.certPath(tenantID, env))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", zatca.ErrSigningNotConfigured, err)
	}

	return &SigningAsset{Key: signer, Certificate: cert, Environment: env}, nil
}

// Put verifies the pair before anything touches disk. This is the only point
// where a key/cert pairing error is still recoverable. Password-protected
// keys are normalized to plain PKCS#8 at rest; the store directory carries
// 0700 permissions.
func (s *FileStore) Put(tenantID string, env zatca.Environment, certPEM, keyPEM, password []byte) error {
	if err := VerifyKeyPair(certPEM, keyPEM, password); err != nil {
		return err
	}

	if len(password) > 0 {
		signer, err := LoadSignerFromPEM(keyPEM, password)
		if err != nil {
			return err
		}
		der, err := x509.MarshalPKCS8PrivateKey(signer)
		if err != nil {
			return fmt.Errorf("re-encode private key: %w", err)
		}
		keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	}

	key := lockKey(tenantID, env)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	dir := filepath.Dir(s.certPath(tenantID, env))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	if err := os.WriteFile(s.certPath(tenantID, env), certPEM, 0o600); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	if err := os.WriteFile(s.keyPath(tenantID, env), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}

	logger.Debugf("stored signing asset for tenant %s (%s)", tenantID, env)
	return nil
}
