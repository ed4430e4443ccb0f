package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service implements the session lifecycle: issue, verify, authorize, revoke.
type Service struct {
	repo        RepositoryAPI
	tokens      TokenGeneratorAPI
	permissions *PermissionCache
	bcryptCost  int
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, permissions *PermissionCache, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		permissions: permissions,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Login authenticates by full name and password and returns a bearer session.
// Re-login while the stored token still verifies returns the identical token,
// so the call is idempotent for an unexpired session. An expired stored token
// is deleted before a fresh one is issued.
func (s *Service) Login(dto LoginDTO) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	user, passwordHash, err := s.repo.GetActiveUserByFullName(dto.Username)
	if err != nil {
		s.logger.Warn("login: user lookup failed", "username", dto.Username, "error", err)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	role, err := s.repo.GetRoleName(user.RoleID)
	if err != nil || role == "" {
		s.logger.Warn("login: role resolution failed", "user_id", user.ID, "role_id", user.RoleID)
		return nil, ErrRoleNotFound
	}

	if existing, err := s.repo.GetToken(user.ID); err == nil && existing != nil {
		if _, verr := s.tokens.Validate(existing.Token); verr == nil {
			return &Session{
				AccessToken:  existing.Token,
				TokenType:    "bearer",
				Role:         role,
				UserFullName: user.FullName,
			}, nil
		}
		// Stored token no longer verifies. Delete it and fall through to
		// issuance; an expired-but-present row is never updated in place.
		if _, derr := s.repo.DeleteToken(user.ID); derr != nil {
			return nil, fmt.Errorf("failed to delete expired token: %w", derr)
		}
		s.logger.Debug("login: replaced expired token", "user_id", user.ID)
	}

	token, expiresAt, err := s.tokens.Generate(user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	rec := &TokenRecord{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.SaveToken(rec); err != nil {
		// Two logins racing on the existing-token check can both reach the
		// insert. Treat a duplicate-key failure as a lost race and return
		// the winner's token.
		if errors.Is(err, ErrDuplicateToken) {
			if winner, gerr := s.repo.GetToken(user.ID); gerr == nil && winner != nil {
				return &Session{
					AccessToken:  winner.Token,
					TokenType:    "bearer",
					Role:         role,
					UserFullName: user.FullName,
				}, nil
			}
		}
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	s.logger.Info("login: session issued", "user_id", user.ID, "role", role)

	return &Session{
		AccessToken:  token,
		TokenType:    "bearer",
		Role:         role,
		UserFullName: user.FullName,
	}, nil
}

// VerifyToken validates signature and expiry, resolves the embedded email to
// an active user, and requires a matching token row. The store membership
// check is the revocation mechanism: deleting the row kills the session even
// though the signature would still verify.
func (s *Service) VerifyToken(tokenString string) (*User, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetActiveUserByEmail(claims.Email)
	if err != nil || user == nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	stored, err := s.repo.GetToken(user.ID)
	if err != nil || stored == nil || stored.Token != tokenString {
		return nil, ErrTokenRevoked
	}

	user.Role = claims.Role
	return user, nil
}

// AuthorizeEndpoint checks the role-permission map for a named endpoint.
// Endpoints with no mapping are inaccessible regardless of role.
func (s *Service) AuthorizeEndpoint(user *User, endpoint string) error {
	roleIDs, err := s.permissions.RoleIDs(endpoint)
	if err != nil {
		return fmt.Errorf("permission lookup failed: %w", err)
	}
	if len(roleIDs) == 0 {
		s.logger.Warn("authorize: endpoint not configured", "endpoint", endpoint)
		return ErrEndpointNotConfigured
	}
	for _, id := range roleIDs {
		if id == user.RoleID {
			return nil
		}
	}
	s.logger.Warn("authorize: access denied",
		"endpoint", endpoint,
		"user_id", user.ID,
		"role_id", user.RoleID)
	return ErrPermissionDenied
}

// Logout deletes the user's token row. Returns ErrTokenNotFound when there
// was nothing to delete, so repeated logouts answer 404 instead of crashing.
func (s *Service) Logout(userID int64) error {
	deleted, err := s.repo.DeleteToken(userID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if !deleted {
		return ErrTokenNotFound
	}
	s.logger.Info("logout: session revoked", "user_id", userID)
	return nil
}

// HashPassword creates a bcrypt hash of the password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// JWTTokenGenerator signs and validates HS256 session tokens.
type JWTTokenGenerator struct {
	Secret   []byte
	TokenTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTTokenGenerator{
		Secret:   []byte(secret),
		TokenTTL: ttl,
	}
}

func (j *JWTTokenGenerator) Generate(email, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(j.TokenTTL)

	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

func (j *JWTTokenGenerator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
