package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock repository backed by maps, including the token store.
type mockAuthRepository struct {
	usersByName   map[string]*User
	hashesByName  map[string]string
	roles         map[int64]string
	tokens        map[int64]*TokenRecord
	endpointRoles map[string][]int64
	returnError   error
}

func newMockAuthRepository() *mockAuthRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("jnjnuh"), bcrypt.DefaultCost)

	return &mockAuthRepository{
		usersByName: map[string]*User{
			"user1": {ID: 1, FullName: "user1", Email: "user1@mail.com", RoleID: 1, IsActive: true},
			"user2": {ID: 2, FullName: "user2", Email: "user2@mail.com", RoleID: 2, IsActive: true},
			"user3": {ID: 3, FullName: "user3", Email: "user3@mail.com", RoleID: 99, IsActive: true},
		},
		hashesByName: map[string]string{
			"user1": string(hash),
			"user2": string(hash),
			"user3": string(hash),
		},
		roles: map[int64]string{
			1: "ADMIN",
			2: "TEACHER",
		},
		tokens: make(map[int64]*TokenRecord),
		endpointRoles: map[string][]int64{
			"ingest_documents": {1, 2},
			"read_users":       {1},
		},
	}
}

func (m *mockAuthRepository) GetActiveUserByFullName(fullName string) (*User, string, error) {
	if m.returnError != nil {
		return nil, "", m.returnError
	}
	user, ok := m.usersByName[fullName]
	if !ok {
		return nil, "", errors.New("user not found")
	}
	copied := *user
	return &copied, m.hashesByName[fullName], nil
}

func (m *mockAuthRepository) GetActiveUserByEmail(email string) (*User, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	for _, user := range m.usersByName {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockAuthRepository) GetRoleName(roleID int64) (string, error) {
	name, ok := m.roles[roleID]
	if !ok {
		return "", errors.New("role not found")
	}
	return name, nil
}

func (m *mockAuthRepository) GetToken(userID int64) (*TokenRecord, error) {
	rec, ok := m.tokens[userID]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (m *mockAuthRepository) SaveToken(rec *TokenRecord) error {
	if _, exists := m.tokens[rec.UserID]; exists {
		return ErrDuplicateToken
	}
	m.tokens[rec.UserID] = rec
	return nil
}

func (m *mockAuthRepository) DeleteToken(userID int64) (bool, error) {
	if _, exists := m.tokens[userID]; !exists {
		return false, nil
	}
	delete(m.tokens, userID)
	return true, nil
}

func (m *mockAuthRepository) AllEndpointRoles() (map[string][]int64, error) {
	return m.endpointRoles, nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockAuthRepository
		tokenGen *JWTTokenGenerator
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ginkgo.BeforeEach(func() {
		mockRepo = newMockAuthRepository()
		tokenGen = NewJWTTokenGenerator("test-secret-at-least-16", time.Hour)

		permissions := NewPermissionCache(mockRepo, time.Minute, testLogger)
		gomega.Expect(permissions.Load()).To(gomega.Succeed())

		service = NewService(mockRepo, tokenGen, permissions, bcrypt.DefaultCost, testLogger)
	})

	ginkgo.Describe("Login", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should issue a bearer session with the resolved role", func() {
				// Given
				dto := LoginDTO{Username: "user1", Password: "jnjnuh"}

				// When
				session, err := service.Login(dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(session.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(session.TokenType).To(gomega.Equal("bearer"))
				gomega.Expect(session.Role).To(gomega.Equal("ADMIN"))
				gomega.Expect(session.UserFullName).To(gomega.Equal("user1"))
			})

			ginkgo.It("should persist the issued token", func() {
				session, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				stored, err := mockRepo.GetToken(1)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(stored).ToNot(gomega.BeNil())
				gomega.Expect(stored.Token).To(gomega.Equal(session.AccessToken))
			})

			ginkgo.It("should return the identical token on re-login while valid", func() {
				first, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				second, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(second.AccessToken).To(gomega.Equal(first.AccessToken))
			})

			ginkgo.It("should replace a stored token that no longer verifies", func() {
				mockRepo.tokens[1] = &TokenRecord{
					UserID:    1,
					Token:     "not-a-valid-jwt",
					ExpiresAt: time.Now().Add(-time.Minute),
				}

				session, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(session.AccessToken).ToNot(gomega.Equal("not-a-valid-jwt"))

				stored, _ := mockRepo.GetToken(1)
				gomega.Expect(stored.Token).To(gomega.Equal(session.AccessToken))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should reject an unknown username", func() {
				session, err := service.Login(LoginDTO{Username: "nobody", Password: "jnjnuh"})

				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
				gomega.Expect(session).To(gomega.BeNil())
			})

			ginkgo.It("should reject a wrong password", func() {
				session, err := service.Login(LoginDTO{Username: "user1", Password: "wrong"})

				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
				gomega.Expect(session).To(gomega.BeNil())
			})
		})

		ginkgo.Context("when the user's role cannot be resolved", func() {
			ginkgo.It("should fail with role not found", func() {
				session, err := service.Login(LoginDTO{Username: "user3", Password: "jnjnuh"})

				gomega.Expect(err).To(gomega.Equal(ErrRoleNotFound))
				gomega.Expect(session).To(gomega.BeNil())
			})
		})

		ginkgo.Context("when input validation fails", func() {
			ginkgo.It("should reject an empty username", func() {
				_, err := service.Login(LoginDTO{Username: "", Password: "jnjnuh"})

				gomega.Expect(err).To(gomega.HaveOccurred())
				gomega.Expect(err.Error()).To(gomega.ContainSubstring("username"))
			})
		})

		ginkgo.Context("when two logins race on the insert", func() {
			ginkgo.It("should return the winner's token on a duplicate-key failure", func() {
				winnerToken, _, err := tokenGen.Generate("user1@mail.com", "ADMIN")
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				// SaveToken will fail with ErrDuplicateToken because the row
				// exists, but the existing-token check below never sees it.
				loser := newMockAuthRepository()
				loser.tokens[1] = &TokenRecord{UserID: 1, Token: winnerToken}
				racingRepo := &racingAuthRepository{mockAuthRepository: loser}

				permissions := NewPermissionCache(racingRepo, time.Minute, testLogger)
				gomega.Expect(permissions.Load()).To(gomega.Succeed())
				racingService := NewService(racingRepo, tokenGen, permissions, bcrypt.DefaultCost, testLogger)

				session, err := racingService.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(session.AccessToken).To(gomega.Equal(winnerToken))
			})
		})
	})

	ginkgo.Describe("VerifyToken", func() {
		ginkgo.It("should resolve a live session to its user", func() {
			session, err := service.Login(LoginDTO{Username: "user2", Password: "jnjnuh"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			user, err := service.VerifyToken(session.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user.ID).To(gomega.Equal(int64(2)))
			gomega.Expect(user.Role).To(gomega.Equal("TEACHER"))
		})

		ginkgo.It("should reject a token after logout even though the signature verifies", func() {
			session, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Logout(1)).To(gomega.Succeed())

			_, err = service.VerifyToken(session.AccessToken)
			gomega.Expect(err).To(gomega.Equal(ErrTokenRevoked))
		})

		ginkgo.It("should reject a token that does not match the stored row", func() {
			_, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			other, _, err := tokenGen.Generate("user1@mail.com", "ADMIN")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.VerifyToken(other)
			gomega.Expect(err).To(gomega.Equal(ErrTokenRevoked))
		})

		ginkgo.It("should reject garbage tokens", func() {
			_, err := service.VerifyToken("garbage")
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})

	ginkgo.Describe("AuthorizeEndpoint", func() {
		ginkgo.It("should allow a role listed for the endpoint", func() {
			user := &User{ID: 2, RoleID: 2}
			gomega.Expect(service.AuthorizeEndpoint(user, "ingest_documents")).To(gomega.Succeed())
		})

		ginkgo.It("should deny a role not listed for the endpoint", func() {
			user := &User{ID: 2, RoleID: 2}
			err := service.AuthorizeEndpoint(user, "read_users")
			gomega.Expect(err).To(gomega.Equal(ErrPermissionDenied))
		})

		ginkgo.It("should deny every role for an unmapped endpoint", func() {
			admin := &User{ID: 1, RoleID: 1}
			err := service.AuthorizeEndpoint(admin, "unmapped_endpoint")
			gomega.Expect(err).To(gomega.Equal(ErrEndpointNotConfigured))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should report not found when no session exists", func() {
			err := service.Logout(1)
			gomega.Expect(err).To(gomega.Equal(ErrTokenNotFound))
		})

		ginkgo.It("should report not found on a repeated logout", func() {
			_, err := service.Login(LoginDTO{Username: "user1", Password: "jnjnuh"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Logout(1)).To(gomega.Succeed())
			gomega.Expect(service.Logout(1)).To(gomega.Equal(ErrTokenNotFound))
		})
	})
})

// racingAuthRepository simulates a concurrent login that inserted its row
// between the existing-token check and the save.
type racingAuthRepository struct {
	*mockAuthRepository
	checked bool
}

func (r *racingAuthRepository) GetToken(userID int64) (*TokenRecord, error) {
	if !r.checked {
		r.checked = true
		return nil, nil
	}
	return r.mockAuthRepository.GetToken(userID)
}
