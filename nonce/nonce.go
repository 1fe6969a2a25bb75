// Package nonce issues and verifies form forgery tokens. A token is an HS256 JWT bound
// to an action scope and the user the form was rendered for, valid for a limited time.
package nonce

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer = "usernotes"
	defaultTTL    = 24 * time.Hour
)

var (
	errMissingSecret = errors.New("nonce: signing secret must be provided")
	errMissingScope  = errors.New("nonce: scope must be provided")
)

type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Clock  func() time.Time
}

type Issuer struct {
	config Config
}

type claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

func New(cfg Config) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Issuer{config: cfg}
}

// Issue returns a token for scope on behalf of userID.
func (i *Issuer) Issue(scope string, userID int64) (string, error) {
	if len(i.config.Secret) == 0 {
		return "", errMissingSecret
	}
	if scope == "" {
		return "", errMissingScope
	}
	now := i.config.Clock().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.TTL)),
		},
	})
	return token.SignedString(i.config.Secret)
}

// Verify reports whether token was issued by this issuer for scope and userID and has
// not expired.
func (i *Issuer) Verify(scope string, userID int64, token string) bool {
	return i.check(scope, userID, token) == nil
}

func (i *Issuer) check(scope string, userID int64, token string) error {
	if len(i.config.Secret) == 0 {
		return errMissingSecret
	}
	c := &claims{}
	_, err := jwt.ParseWithClaims(
		token,
		c,
		func(t *jwt.Token) (interface{}, error) {
			return i.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithSubject(strconv.FormatInt(userID, 10)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.config.Clock),
	)
	if err != nil {
		return err
	}
	if c.Scope != scope {
		return fmt.Errorf("nonce: scope mismatch: %q", c.Scope)
	}
	return nil
}
