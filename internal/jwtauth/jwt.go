package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"verifica/internal/platform/middleware"
	dErrors "verifica/pkg/domain-errors"
)

// Claims represents the JWT claims for operator access tokens.
type Claims struct {
	ReviewerID string `json:"reviewer_id"`
	Name       string `json:"name"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation for dashboard operators.
// Session issuance lives in the user-management system; this service only
// needs enough to validate tokens and, in tests, mint them.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken mints a signed operator token. Used by tests and local
// tooling; production tokens come from the identity provider with the same
// shared key.
func (s *Service) GenerateAccessToken(reviewerID, name string, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ReviewerID: reviewerID,
		Name:       name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and validates a token, returning middleware claims.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.ReviewerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing reviewer identity")
	}

	return &middleware.JWTClaims{ReviewerID: claims.ReviewerID, Name: claims.Name}, nil
}
