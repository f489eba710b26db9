package seal

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T) *JWSSealer {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewJWSSealer(key, "test-key")
	require.NoError(t, err)
	return s
}

func TestJWSSealer_SealAndVerify(t *testing.T) {
	s := newSealer(t)
	pdf := []byte("%PDF-1.7 original")
	payload := []byte(`{"id":"inv-1"}`)

	sig, err := s.Seal(pdf, payload)
	require.NoError(t, err)

	// detached compact form has an empty payload segment
	parts := strings.Split(string(sig), ".")
	require.Len(t, parts, 3)
	assert.Empty(t, parts[1])

	assert.NoError(t, s.Verify(sig, pdf, payload))
	assert.ErrorIs(t, s.Verify(sig, []byte("%PDF-1.7 tampered"), payload), ErrMismatch)
	assert.ErrorIs(t, s.Verify(sig, pdf, []byte(`{"id":"inv-2"}`)), ErrMismatch)
}

func TestJWSSealer_OtherKeyFails(t *testing.T) {
	a, b := newSealer(t), newSealer(t)
	sig, err := a.Seal([]byte("pdf"), []byte("payload"))
	require.NoError(t, err)
	assert.ErrorIs(t, b.Verify(sig, []byte("pdf"), []byte("payload")), ErrMismatch)
}

func TestLoadKeyFile(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	dir := t.TempDir()

	sec1, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	sec1Path := filepath.Join(dir, "sec1.pem")
	require.NoError(t, os.WriteFile(sec1Path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: sec1}), 0o600))

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8Path := filepath.Join(dir, "pkcs8.pem")
	require.NoError(t, os.WriteFile(pkcs8Path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), 0o600))

	for _, p := range []string{sec1Path, pkcs8Path} {
		got, err := LoadKeyFile(p)
		require.NoError(t, err)
		assert.True(t, got.Equal(key))
	}

	emptyPath := filepath.Join(dir, "empty.pem")
	require.NoError(t, os.WriteFile(emptyPath, []byte("nothing here"), 0o600))
	_, err = LoadKeyFile(emptyPath)
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = LoadKeyFile(filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)
}
