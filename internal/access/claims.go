package access

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// The service role is carried like any other role; there is no implicit
// global flag, a caller is privileged only when its token says Role=service.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
