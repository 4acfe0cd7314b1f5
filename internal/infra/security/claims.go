package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TicketPurposeAssociate marks a ticket binding an external round trip to
	// an authenticated account.
	TicketPurposeAssociate = "associate"
	// TicketPurposeSignup marks a signup-defer ticket carrying external
	// profile defaults.
	TicketPurposeSignup = "signup"
)

var (
	// ErrTokenInvalid indicates the token failed signature, algorithm, or
	// structural validation.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// ClaimProfile is the public profile subset embedded in issued claims.
type ClaimProfile struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Fullname string `json:"fullname,omitempty"`
	Aup      bool   `json:"aup,omitempty"`
}

// AuthClaims is the signed payload asserting an authenticated principal.
// Sub shadows the registered subject with the numeric account identifier.
type AuthClaims struct {
	Sub     int64               `json:"sub"`
	Scopes  map[string][]string `json:"scopes,omitempty"`
	Gids    []int64             `json:"gids,omitempty"`
	Profile ClaimProfile        `json:"profile,omitempty"`
	jwt.RegisteredClaims
}

// TicketClaims is the short-TTL payload for association and signup-defer
// tickets. Purpose is checked at consumption so tickets cannot cross flows.
type TicketClaims struct {
	Sub      int64             `json:"sub,omitempty"`
	Purpose  string            `json:"purpose"`
	Provider string            `json:"provider,omitempty"`
	Ext      map[string]string `json:"ext,omitempty"`
	Defaults map[string]string `json:"_default,omitempty"`
	jwt.RegisteredClaims
}

// ClaimSigner signs and verifies claims with a pinned asymmetric algorithm.
// Verification rejects any other algorithm to prevent downgrade attacks.
type ClaimSigner struct {
	keys   KeyProvider
	issuer string
	method jwt.SigningMethod
	now    func() time.Time
}

// NewClaimSigner constructs a signer pinned to RS256.
func NewClaimSigner(keys KeyProvider, issuer string) *ClaimSigner {
	return &ClaimSigner{
		keys:   keys,
		issuer: issuer,
		method: jwt.SigningMethodRS256,
		now:    time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *ClaimSigner) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SignClaims stamps issuer/iat, applies the TTL, and signs.
func (s *ClaimSigner) SignClaims(claims *AuthClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("claims are required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	now := s.now().UTC()
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return s.sign(claims)
}

// VerifyClaims validates signature, expiry, issuer, and algorithm pinning.
func (s *ClaimSigner) VerifyClaims(token string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := s.verify(token, claims); err != nil {
		return nil, err
	}
	if claims.Sub <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// SignTicket signs a short-TTL ticket.
func (s *ClaimSigner) SignTicket(ticket *TicketClaims, ttl time.Duration) (string, error) {
	if ticket == nil {
		return "", fmt.Errorf("ticket is required")
	}
	if ticket.Purpose == "" {
		return "", fmt.Errorf("ticket purpose is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	now := s.now().UTC()
	ticket.Issuer = s.issuer
	ticket.IssuedAt = jwt.NewNumericDate(now)
	ticket.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return s.sign(ticket)
}

// VerifyTicket validates the ticket and checks its purpose.
func (s *ClaimSigner) VerifyTicket(token, purpose string) (*TicketClaims, error) {
	ticket := &TicketClaims{}
	if err := s.verify(token, ticket); err != nil {
		return nil, err
	}
	if ticket.Purpose != purpose {
		return nil, ErrTokenInvalid
	}
	return ticket, nil
}

func (s *ClaimSigner) sign(claims jwt.Claims) (string, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		return "", fmt.Errorf("get signing key: %w", err)
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (s *ClaimSigner) verify(token string, claims jwt.Claims) error {
	if token == "" {
		return ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.keys.VerificationKey()
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid {
		return ErrTokenInvalid
	}

	return nil
}
