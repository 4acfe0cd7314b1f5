package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrKeyNotFound indicates no key material could be loaded.
	ErrKeyNotFound = errors.New("key not found")
)

// KeyProvider supplies the asymmetric keypair used for claim signing.
// Verifiers load only the public key; the signing key stays server-side.
type KeyProvider interface {
	SigningKey() (*rsa.PrivateKey, error)
	VerificationKey() (*rsa.PublicKey, error)
}

// FileKeyProvider reads a PEM keypair from a directory. The first parseable
// private key becomes the signing key; its public half verifies.
type FileKeyProvider struct {
	signingKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewFileKeyProvider loads key material from the provided directory.
func NewFileKeyProvider(keyDir string) (*FileKeyProvider, error) {
	files, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("read key directory: %w", err)
	}

	provider := &FileKeyProvider{}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		path := filepath.Join(keyDir, file.Name())
		keyData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read key file %s: %w", path, err)
		}

		block, _ := pem.Decode(keyData)
		if block == nil {
			continue
		}

		if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
			if provider.signingKey == nil {
				provider.signingKey = key
				provider.publicKey = &key.PublicKey
			}
			continue
		}

		if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
			if rsaKey, ok := key.(*rsa.PrivateKey); ok && provider.signingKey == nil {
				provider.signingKey = rsaKey
				provider.publicKey = &rsaKey.PublicKey
			}
			continue
		}

		if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
			if provider.publicKey == nil {
				provider.publicKey = key
			}
			continue
		}

		if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
			if rsaKey, ok := key.(*rsa.PublicKey); ok && provider.publicKey == nil {
				provider.publicKey = rsaKey
			}
			continue
		}
	}

	if provider.signingKey == nil && provider.publicKey == nil {
		return nil, fmt.Errorf("%w: no usable keys in %s", ErrKeyNotFound, keyDir)
	}

	return provider, nil
}

// SigningKey returns the private key for signing claims.
func (p *FileKeyProvider) SigningKey() (*rsa.PrivateKey, error) {
	if p.signingKey == nil {
		return nil, fmt.Errorf("%w: no private key loaded", ErrKeyNotFound)
	}
	return p.signingKey, nil
}

// VerificationKey returns the public key for verifying claims.
func (p *FileKeyProvider) VerificationKey() (*rsa.PublicKey, error) {
	if p.publicKey == nil {
		return nil, fmt.Errorf("%w: no public key loaded", ErrKeyNotFound)
	}
	return p.publicKey, nil
}

// StaticKeyProvider wraps an in-memory keypair, used in tests.
type StaticKeyProvider struct {
	Key *rsa.PrivateKey
}

// SigningKey returns the wrapped private key.
func (p *StaticKeyProvider) SigningKey() (*rsa.PrivateKey, error) {
	if p.Key == nil {
		return nil, ErrKeyNotFound
	}
	return p.Key, nil
}

// VerificationKey returns the wrapped public key.
func (p *StaticKeyProvider) VerificationKey() (*rsa.PublicKey, error) {
	if p.Key == nil {
		return nil, ErrKeyNotFound
	}
	return &p.Key.PublicKey, nil
}
