// Package token issues the public identifiers of transformed records.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// ByteLength is the amount of entropy per token (256 bits).
	ByteLength = 32
	// Length is the hex-encoded token length.
	Length = ByteLength * 2
	// DefaultMaxAttempts bounds the collision retry loop.
	DefaultMaxAttempts = 8
)

var (
	// ErrEntropy means the CSPRNG could not deliver random bytes. It is a
	// configuration failure and must not be retried.
	ErrEntropy = errors.New("token: secure random source unavailable")
	// ErrExhausted means every attempt collided with an existing token.
	ErrExhausted = errors.New("token: attempt ceiling reached without a free token")
)

// Lookup reports whether a transformed record already carries a token.
type Lookup interface {
	TokenExists(ctx context.Context, token string) (bool, error)
}

// Reserver claims a token for an in-flight submission so that two concurrent
// submissions cannot both observe the same value as free.
type Reserver interface {
	Reserve(ctx context.Context, token string) (bool, error)
	Release(ctx context.Context, token string) error
}

// Generator draws collision-checked tokens.
type Generator struct {
	lookup      Lookup
	reserver    Reserver
	random      io.Reader
	maxAttempts int
}

// Option configures a Generator.
type Option func(*Generator)

// WithReserver adds a write-time reservation step after the store lookup.
func WithReserver(r Reserver) Option {
	return func(g *Generator) { g.reserver = r }
}

// WithMaxAttempts overrides the attempt ceiling. Values below one are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom replaces the entropy source. Only tests should use this.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator(lookup Lookup, opts ...Option) *Generator {
	g := &Generator{lookup: lookup, random: rand.Reader, maxAttempts: DefaultMaxAttempts}
	for _, o := range opts {
		o(g)
	}
	return g
}

// MaxAttempts returns the configured attempt ceiling.
func (g *Generator) MaxAttempts() int { return g.maxAttempts }

// Generate returns a token that no transformed record carries and, when a
// Reserver is configured, that no other in-flight submission holds.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		tok, err := g.draw()
		if err != nil {
			return "", err
		}
		taken, err := g.lookup.TokenExists(ctx, tok)
		if err != nil {
			return "", fmt.Errorf("token lookup: %w", err)
		}
		if taken {
			continue
		}
		if g.reserver != nil {
			ok, err := g.reserver.Reserve(ctx, tok)
			if err != nil {
				return "", fmt.Errorf("token reservation: %w", err)
			}
			if !ok {
				continue
			}
		}
		return tok, nil
	}
	return "", ErrExhausted
}

// Release drops the reservation of tok, if any.
func (g *Generator) Release(ctx context.Context, tok string) error {
	if g.reserver == nil {
		return nil
	}
	return g.reserver.Release(ctx, tok)
}

func (g *Generator) draw() (string, error) {
	buf := make([]byte, ByteLength)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return hex.EncodeToString(buf), nil
}

// Valid reports whether s has the shape of a token.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
