// Package seal produces detached signatures over the bytes an invoice was
// enriched from.
package seal

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
)

var (
	// ErrNoKey is returned when the key file holds no usable EC private key.
	ErrNoKey = errors.New("seal: no EC private key found")
	// ErrMismatch means a signature does not cover the given bytes.
	ErrMismatch = errors.New("seal: signature does not match content")
)

// Sealer signs the PDF and structured payload of an invoice.
type Sealer interface {
	Seal(pdf, payload []byte) ([]byte, error)
}

// manifest is the signed JWS payload. It binds both inputs without copying them.
type manifest struct {
	PDF     string `json:"pdf"`
	Payload string `json:"payload"`
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func manifestFor(pdf, payload []byte) ([]byte, error) {
	return json.Marshal(manifest{PDF: digest(pdf), Payload: digest(payload)})
}

// JWSSealer emits an ES256 JWS in detached compact serialization.
type JWSSealer struct {
	key    *ecdsa.PrivateKey
	keyID  string
	signer jose.Signer
}

// NewJWSSealer returns a sealer signing with key.
func NewJWSSealer(key *ecdsa.PrivateKey, keyID string) (*JWSSealer, error) {
	opts := (&jose.SignerOptions{}).WithType("JOSE").WithContentType("invoicevault-seal+json")
	if keyID != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), keyID)
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: key}, opts)
	if err != nil {
		return nil, fmt.Errorf("seal: create signer: %w", err)
	}
	return &JWSSealer{key: key, keyID: keyID, signer: signer}, nil
}

// Seal returns the signature over the digests of pdf and payload.
func (s *JWSSealer) Seal(pdf, payload []byte) ([]byte, error) {
	m, err := manifestFor(pdf, payload)
	if err != nil {
		return nil, err
	}
	obj, err := s.signer.Sign(m)
	if err != nil {
		return nil, fmt.Errorf("seal: sign: %w", err)
	}
	compact, err := obj.DetachedCompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("seal: serialize: %w", err)
	}
	return []byte(compact), nil
}

// Verify checks that sig covers exactly pdf and payload.
func (s *JWSSealer) Verify(sig, pdf, payload []byte) error {
	m, err := manifestFor(pdf, payload)
	if err != nil {
		return err
	}
	obj, err := jose.ParseDetached(string(sig), m, []jose.SignatureAlgorithm{jose.ES256})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	if _, err := obj.Verify(&s.key.PublicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return nil
}

// KeyID returns the key identifier placed in the protected header.
func (s *JWSSealer) KeyID() string { return s.keyID }

// LoadKeyFile reads a PEM encoded EC private key in SEC 1 or PKCS #8 form.
func LoadKeyFile(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seal: read key: %w", err)
	}
	return ParseKey(raw)
}

// ParseKey decodes the first usable key block of a PEM document.
func ParseKey(raw []byte) (*ecdsa.PrivateKey, error) {
	for {
		var block *pem.Block
		block, raw = pem.Decode(raw)
		if block == nil {
			return nil, ErrNoKey
		}
		switch block.Type {
		case "EC PRIVATE KEY":
			return x509.ParseECPrivateKey(block.Bytes)
		case "PRIVATE KEY":
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			ec, ok := k.(*ecdsa.PrivateKey)
			if !ok {
				return nil, ErrNoKey
			}
			return ec, nil
		}
	}
}

// GenerateKey creates a P-256 key for development runs without a key file.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}
