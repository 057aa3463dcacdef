package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

// Config contains the token signing configuration.
type Config struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTTTL    string `mapstructure:"jwt_ttl"`
}

// New returns the HS256 signer for c and the lifetime of minted tokens.
func New(c *Config) (*jwtauth.JWTAuth, time.Duration, error) {
	if c.JWTSecret == "" {
		return nil, 0, errors.New("missing jwt secret")
	}
	ttl := 24 * time.Hour
	if c.JWTTTL != "" {
		var err error
		ttl, err = time.ParseDuration(c.JWTTTL)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid jwt ttl: %w", err)
		}
	}
	return jwtauth.New("HS256", []byte(c.JWTSecret), nil), ttl, nil
}
