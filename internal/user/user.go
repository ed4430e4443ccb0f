package user

import "errors"

// User is the credential-store record. PasswordHash never leaves the package
// boundary in responses.
type User struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	MobileNo     string `json:"mobile_no"`
	PasswordHash string `json:"-" gorm:"column:password_hash"`
	RoleID       int64  `json:"role_id"`
	IsActive     bool   `json:"is_active"`
}

func (User) TableName() string {
	return "users"
}

type RepositoryAPI interface {
	Create(u *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	GetAll(limit, offset int) ([]*User, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user with this email or mobile number already exists")
)
