package token

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// Kind prefixes a generated value so its purpose is visible in logs and on the wire.
type Kind string

const (
	KindAccessToken       Kind = "access_token"
	KindRefreshToken      Kind = "refresh_token"
	KindAuthorizationCode Kind = "auth_code"
)

// Generator produces unguessable opaque values.
type Generator interface {
	Generate(kind Kind) (string, error)
}

// RandomGenerator draws length bytes from crypto/rand and encodes them base64url without padding.
type RandomGenerator struct {
	length int
}

var _ Generator = (*RandomGenerator)(nil)

func NewRandomGenerator(length int) *RandomGenerator {
	return &RandomGenerator{length: length}
}

func (g *RandomGenerator) Generate(kind Kind) (string, error) {
	b := make([]byte, g.length)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "[RandomGenerator.Generate] failed to read random bytes")
	}
	return string(kind) + "_" + base64.RawURLEncoding.EncodeToString(b), nil
}
