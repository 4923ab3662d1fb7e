package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingOwner = errors.New("token has no subject")
)

// Claims identifies the store owner a request acts for. The owner id is the
// registered subject.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// OwnerID is the subject of the token.
func (c *Claims) OwnerID() string {
	return c.Subject
}

// JWTService validates owner tokens. Tokens are normally issued by the
// account service; Issue exists for operators and tests.
type JWTService struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewJWTService(secretKey string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Issue signs a token for ownerID valid for the configured TTL.
func (s *JWTService) Issue(ownerID, name string) (string, time.Time, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", time.Time{}, ErrMissingOwner
	}
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   ownerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Validate parses tokenString and returns its claims. Only HMAC tokens
// carrying a subject are accepted.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingOwner
	}

	return claims, nil
}

func (s *JWTService) TokenTTL() time.Duration {
	return s.tokenTTL
}
