package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/unbox-labs/backend-unbox/internal/common"
)

// TokenVerifier validates session tokens issued by the identity provider.
// Tokens are only verified here; issuance and refresh live with the provider.
type TokenVerifier struct {
	Secret    []byte
	Audience  string
	ClockSkew time.Duration

	now func() time.Time
}

// NewTokenVerifier builds a verifier for HS256-signed session tokens.
func NewTokenVerifier(secret string, audience string, skew time.Duration) *TokenVerifier {
	return &TokenVerifier{
		Secret:    []byte(secret),
		Audience:  audience,
		ClockSkew: skew,
		now:       time.Now,
	}
}

// Verify parses and validates a token string and returns the subject (user ID).
func (v *TokenVerifier) Verify(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError(common.CodeUnauthenticated, "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError(common.CodeUnauthenticated, "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != jwa.HS256 {
		return "", common.NewAppError(common.CodeUnauthenticated, "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(jwa.HS256, v.Secret))
	if err != nil {
		return "", common.NewAppError(common.CodeUnauthenticated, "invalid token", http.StatusUnauthorized, err)
	}
	if err := v.validate(parsed); err != nil {
		return "", common.NewAppError(common.CodeUnauthenticated, "invalid token", http.StatusUnauthorized, err)
	}
	subject := parsed.Subject()
	if subject == "" {
		return "", common.NewAppError(common.CodeUnauthenticated, "invalid token", http.StatusUnauthorized, errors.New("auth: token missing subject"))
	}
	return subject, nil
}

func (v *TokenVerifier) validate(tok jwt.Token) error {
	nowFn := v.now
	if nowFn == nil {
		nowFn = time.Now
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(nowFn)),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
