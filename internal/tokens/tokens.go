package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Kind names a token category. Each kind is signed with its own secret.
type Kind int

const (
	Access Kind = iota
	Refresh
	Reset
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	case Reset:
		return "reset"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrExpiredOrInvalidSignature is returned for any token that fails
// verification. Expired, tampered and malformed tokens are indistinguishable.
var ErrExpiredOrInvalidSignature = errors.New("token expired or has an invalid signature")

// SessionClaims is the payload of access and refresh tokens.
type SessionClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of password-reset tokens.
type ResetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies the three token kinds.
type Issuer struct {
	policies map[Kind]config.TokenPolicy
	now      func() time.Time
}

// NewIssuer builds an issuer from the JWT section of the configuration.
func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{
		policies: map[Kind]config.TokenPolicy{
			Access:  cfg.JWT.Access,
			Refresh: cfg.JWT.Refresh,
			Reset:   cfg.JWT.Reset,
		},
		now: time.Now,
	}
}

func (i *Issuer) policy(kind Kind) (config.TokenPolicy, error) {
	p, ok := i.policies[kind]
	if !ok || p.Secret == "" {
		return config.TokenPolicy{}, fmt.Errorf("no signing policy for %s tokens", kind)
	}
	return p, nil
}

func (i *Issuer) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) sign(kind Kind, claims jwt.Claims) (string, error) {
	p, err := i.policy(kind)
	if err != nil {
		return "", err
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(p.Secret))
}

// IssueSession signs an access or refresh token bound to a user and session.
func (i *Issuer) IssueSession(kind Kind, userID, sessionID string) (string, error) {
	if kind == Reset {
		return "", fmt.Errorf("reset tokens do not carry a session")
	}
	p, err := i.policy(kind)
	if err != nil {
		return "", err
	}
	return i.sign(kind, &SessionClaims{
		UserID:           userID,
		SessionID:        sessionID,
		RegisteredClaims: i.registered(p.TTL),
	})
}

// IssuePair returns a fresh access and refresh token for the session.
func (i *Issuer) IssuePair(userID, sessionID string) (access, refresh string, err error) {
	access, err = i.IssueSession(Access, userID, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	refresh, err = i.IssueSession(Refresh, userID, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return access, refresh, nil
}

// IssueReset signs a password-reset token for email.
func (i *Issuer) IssueReset(email string) (string, error) {
	p, err := i.policy(Reset)
	if err != nil {
		return "", err
	}
	return i.sign(Reset, &ResetClaims{Email: email, RegisteredClaims: i.registered(p.TTL)})
}

func (i *Issuer) parse(kind Kind, raw string, claims jwt.Claims) error {
	p, err := i.policy(kind)
	if err != nil {
		return err
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(p.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid {
		return ErrExpiredOrInvalidSignature
	}
	return nil
}

// VerifySession validates an access or refresh token and returns its payload.
func (i *Issuer) VerifySession(kind Kind, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(kind, raw, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrExpiredOrInvalidSignature
	}
	return claims, nil
}

// VerifyReset validates a password-reset token and returns its payload.
func (i *Issuer) VerifyReset(raw string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := i.parse(Reset, raw, claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, ErrExpiredOrInvalidSignature
	}
	return claims, nil
}
