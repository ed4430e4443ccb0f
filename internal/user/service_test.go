package user

import (
	"io"
	"log/slog"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestUser(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "User Module Suite")
}

type mockUserRepository struct {
	users  map[int64]*User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*User)}
}

func (m *mockUserRepository) Create(u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.MobileNo == u.MobileNo {
			return ErrDuplicateUser
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByEmail(email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) GetAll(limit, offset int) ([]*User, error) {
	var out []*User
	for _, u := range m.users {
		out = append(out, u)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockHasher struct{}

func (mockHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

var _ = ginkgo.Describe("UserService", func() {
	var (
		service *Service
		repo    *mockUserRepository
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	validDTO := RegisterDTO{
		FullName: "user4",
		Email:    "user4@mail.com",
		MobileNo: "0844444444",
		Password: "jnjnuh",
		RoleID:   3,
	}

	ginkgo.BeforeEach(func() {
		repo = newMockUserRepository()
		service = NewService(repo, mockHasher{}, testLogger)
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create an active user with a hashed credential", func() {
			u, err := service.Register(validDTO)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.ID).To(gomega.BeNumerically(">", 0))
			gomega.Expect(u.IsActive).To(gomega.BeTrue())
			gomega.Expect(u.PasswordHash).To(gomega.Equal("hashed:jnjnuh"))
		})

		ginkgo.It("should reject a duplicate email", func() {
			_, err := service.Register(validDTO)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			dup := validDTO
			dup.MobileNo = "0855555555"
			_, err = service.Register(dup)
			gomega.Expect(err).To(gomega.Equal(ErrDuplicateUser))
		})

		ginkgo.It("should reject a short password", func() {
			dto := validDTO
			dto.Password = "short"

			_, err := service.Register(dto)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("password"))
		})

		ginkgo.It("should reject a missing role", func() {
			dto := validDTO
			dto.RoleID = 0

			_, err := service.Register(dto)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("role_id"))
		})
	})

	ginkgo.Describe("List", func() {
		ginkgo.It("should clamp an oversized limit", func() {
			for i := 0; i < 3; i++ {
				dto := validDTO
				dto.Email = dto.Email + string(rune('a'+i))
				dto.MobileNo = dto.MobileNo + string(rune('a'+i))
				_, err := service.Register(dto)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			}

			users, err := service.List(100000, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(users).To(gomega.HaveLen(3))
		})
	})
})
