package auth

import (
	"errors"
	"time"

	"project-management-api/internal/cache"
	"project-management-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims represents the JWT claims
type Claims struct {
	EmployeeID uint   `json:"employee_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 tokens. Logged-out token ids are kept in
// a revocation set until they would have expired.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	revoked  cache.Set[string]
	now      func() time.Time
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		revoked:  cache.NewTTLSet[string](cache.Options{}),
		now:      time.Now,
	}
}

// Generate signs a token for the employee and returns it with its claims.
func (t *Tokens) Generate(employeeID uint, email, role string) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		EmployeeID: employeeID,
		Email:      email,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Validate checks signature, issuer, audience, expiry and revocation.
func (t *Tokens) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.EmployeeID == 0 {
		return nil, ErrInvalidToken
	}
	if claims.ID != "" && t.revoked.Contains(claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke invalidates the token until its own expiry.
func (t *Tokens) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	t.revoked.Add(claims.ID, until)
}
