package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aignite/docqa-backend/internal/auth"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetActiveUserByFullName(fullName string) (*auth.User, string, error) {
	var user auth.User
	var passwordHash string

	query := `SELECT id, full_name, email, mobile_no, password_hash, role_id, is_active
	          FROM users WHERE full_name = ? AND is_active = true`

	row := r.db.Raw(query, fullName).Row()
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.MobileNo, &passwordHash, &user.RoleID, &user.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("user not found")
		}
		return nil, "", err
	}
	return &user, passwordHash, nil
}

func (r *Repository) GetActiveUserByEmail(email string) (*auth.User, error) {
	var user auth.User

	query := `SELECT id, full_name, email, mobile_no, role_id, is_active
	          FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.MobileNo, &user.RoleID, &user.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetRoleName(roleID int64) (string, error) {
	var name string

	row := r.db.Raw(`SELECT name FROM roles WHERE id = ? AND is_active = true`, roleID).Row()
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("role not found")
		}
		return "", err
	}
	return name, nil
}

func (r *Repository) GetToken(userID int64) (*auth.TokenRecord, error) {
	var rec auth.TokenRecord

	row := r.db.Raw(`SELECT id, user_id, token, expires_at FROM tokens WHERE user_id = ?`, userID).Row()
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) SaveToken(rec *auth.TokenRecord) error {
	err := r.db.Exec(
		`INSERT INTO tokens (id, user_id, token, expires_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Token, rec.ExpiresAt,
	).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			return auth.ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (r *Repository) DeleteToken(userID int64) (bool, error) {
	res := r.db.Exec(`DELETE FROM tokens WHERE user_id = ?`, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AllEndpointRoles loads the full endpoint-role map for the permission cache.
func (r *Repository) AllEndpointRoles() (map[string][]int64, error) {
	rows, err := r.db.Raw(`SELECT endpoint_name, role_id FROM endpoint_roles`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string][]int64)
	for rows.Next() {
		var endpoint string
		var roleID int64
		if err := rows.Scan(&endpoint, &roleID); err != nil {
			return nil, err
		}
		entries[endpoint] = append(entries[endpoint], roleID)
	}
	return entries, rows.Err()
}
