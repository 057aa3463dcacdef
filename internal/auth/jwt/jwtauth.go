package jwt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

type Role string

const (
	RoleCouple  Role = "couple"
	RolePlanner Role = "planner"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCouple, RolePlanner, RoleStaff:
		return true
	}
	return false
}

const (
	claimWeddings = "weddings"
	claimRole     = "role"
)

// Claims is what a token grants: who the caller is and which weddings they
// may reach. Staff reach every wedding.
type Claims struct {
	Subject  string
	Role     Role
	Weddings []int
}

// CanAccess reports whether the claims cover weddingId.
func (c *Claims) CanAccess(weddingId int) bool {
	return c.Role == RoleStaff || slices.Contains(c.Weddings, weddingId)
}

func VerifyToken(jwtAuth *jwtauth.JWTAuth, token string) (*Claims, error) {
	t, err := jwtauth.VerifyToken(jwtAuth, token)
	if err != nil {
		return nil, err
	}
	return claimsFromMap(t.Subject(), t.PrivateClaims())
}

// FromContext returns the claims of the token verified by jwtauth.Verifier.
func FromContext(ctx context.Context) (*Claims, error) {
	t, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("no token in context")
	}
	return claimsFromMap(t.Subject(), claims)
}

// NewToken creates a JWT carrying c that expires after ttl.
func NewToken(jwtAuth *jwtauth.JWTAuth, ttl time.Duration, c Claims) (string, error) {
	if c.Subject == "" {
		return "", errors.New("missing subject")
	}
	if !c.Role.Valid() {
		return "", fmt.Errorf("invalid role %q", c.Role)
	}
	weddings := c.Weddings
	if weddings == nil {
		weddings = []int{}
	}
	claims := map[string]interface{}{
		"exp":         time.Now().Add(ttl).Unix(),
		"sub":         c.Subject,
		claimRole:     string(c.Role),
		claimWeddings: weddings,
	}
	_, ts, err := jwtAuth.Encode(claims)
	if err != nil {
		return ts, err
	}
	return ts, nil
}

func claimsFromMap(subject string, m map[string]interface{}) (*Claims, error) {
	if subject == "" {
		return nil, errors.New("token without subject")
	}
	c := &Claims{Subject: subject}
	role, _ := m[claimRole].(string)
	c.Role = Role(role)
	if !c.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	switch ws := m[claimWeddings].(type) {
	case nil:
	case []int:
		c.Weddings = ws
	case []interface{}:
		for _, w := range ws {
			id, ok := w.(float64)
			if !ok {
				return nil, fmt.Errorf("invalid wedding id %v", w)
			}
			c.Weddings = append(c.Weddings, int(id))
		}
	default:
		return nil, fmt.Errorf("invalid weddings claim %T", ws)
	}
	return c, nil
}
