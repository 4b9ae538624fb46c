package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const bearerPrefix = "Bearer "

// Claims represents the identity stored in a token
type Claims struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService defines the interface for token creation and validation.
type TokenService interface {
	Issue(userID int64, email string) (string, error)
	Verify(tokenStr string) (*Claims, error)
}

// PasetoService issues and verifies PASETO v4.local tokens (symmetric,
// XChaCha20-Poly1305). Tokens are self-contained: verification needs no
// database lookup and there is no revocation list, so an issued token stays
// valid for its full lifetime.
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
}

func NewPasetoService(symmetricKey []byte, duration time.Duration) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, errors.New("symmetric key must be exactly 32 bytes")
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, err
	}

	return &PasetoService{
		symmetricKey: key,
		duration:     duration,
	}, nil
}

// Issue generates a token embedding the identity, valid for the configured
// duration from now.
func (s *PasetoService) Issue(userID int64, email string) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(s.duration))
	token.SetString("user_id", strconv.FormatInt(userID, 10))
	token.SetString("email", email)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify checks signature validity and expiry, and only then returns the
// embedded identity. An unverified payload is never trusted.
func (s *PasetoService) Verify(tokenStr string) (*Claims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		// The parser checks expiration by default; distinguish expired from invalid
		if errors.Is(err, &paseto.RuleError{}) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	rawUserID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:    userID,
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// ExtractBearer parses an Authorization header value. It returns the token
// and true only when the exact "Bearer " scheme prefix is present with a
// non-empty token; any other shape is reported as absent, not as an error,
// so callers can tell "no credential" apart from "bad credential".
func ExtractBearer(header string) (string, bool) {
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || token == "" {
		return "", false
	}
	return token, true
}
