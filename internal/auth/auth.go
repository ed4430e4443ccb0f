package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is the authenticated identity handed to route handlers.
type User struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	MobileNo string `json:"mobile_no,omitempty"`
	RoleID   int64  `json:"role_id"`
	Role     string `json:"role,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Session is the login response shape.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Role         string `json:"role"`
	UserFullName string `json:"user_full_name"`
}

// TokenRecord is the server-side session row. A signed token is only live
// while its row exists; deleting the row revokes the token immediately.
type TokenRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims are the fields embedded in a signed session token.
type Claims struct {
	Email string `json:"user_email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type ServiceAPI interface {
	Login(dto LoginDTO) (*Session, error)
	Logout(userID int64) error
	VerifyToken(tokenString string) (*User, error)
	AuthorizeEndpoint(user *User, endpoint string) error
}

type RepositoryAPI interface {
	GetActiveUserByFullName(fullName string) (*User, string, error)
	GetActiveUserByEmail(email string) (*User, error)
	GetRoleName(roleID int64) (string, error)
	GetToken(userID int64) (*TokenRecord, error)
	SaveToken(rec *TokenRecord) error
	DeleteToken(userID int64) (bool, error)
}

type TokenGeneratorAPI interface {
	Generate(email, role string) (token string, expiresAt time.Time, err error)
	Validate(tokenString string) (*Claims, error)
}

var (
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrRoleNotFound          = errors.New("user role not found")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenRevoked          = errors.New("token revoked")
	ErrTokenNotFound         = errors.New("token not found or already logged out")
	ErrUserInactive          = errors.New("user is inactive")
	ErrEndpointNotConfigured = errors.New("endpoint not configured")
	ErrPermissionDenied      = errors.New("insufficient role for endpoint")
	ErrDuplicateToken        = errors.New("token already exists for user")
)
