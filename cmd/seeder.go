package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with roles, users and endpoint permissions for development and testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		_, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"endpoint_roles", "tokens", "document_details", "gcs_files", "uris", "users", "roles"} {
				if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		roles := []string{"ADMIN", "TEACHER", "STUDENT"}
		roleIDs := make(map[string]int64)
		for _, name := range roles {
			var id int64
			if err := db.Raw("SELECT id FROM roles WHERE name = ?", name).Row().Scan(&id); err != nil {
				if err := db.Exec("INSERT INTO roles (name, is_active, created_at) VALUES (?, true, now())", name).Error; err != nil {
					log.Fatalf("failed to insert role %s: %v", name, err)
				}
				if err := db.Raw("SELECT id FROM roles WHERE name = ?", name).Row().Scan(&id); err != nil {
					log.Fatalf("role not found after insert %s: %v", name, err)
				}
				fmt.Println("Seeded role:", name)
			}
			roleIDs[name] = id
		}

		password := "jnjnuh"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			FullName string
			Email    string
			MobileNo string
			Role     string
		}{
			{"user1", "user1@mail.com", "0811111111", "ADMIN"},
			{"user2", "user2@mail.com", "0822222222", "TEACHER"},
			{"user3", "user3@mail.com", "0833333333", "STUDENT"},
		}

		for _, u := range users {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row().Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if err := db.Exec(
				"INSERT INTO users (full_name, email, mobile_no, password_hash, role_id, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, true, now(), now())",
				u.FullName, u.Email, u.MobileNo, string(hash), roleIDs[u.Role],
			).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		// Endpoints absent from this map reject every role.
		endpointRoles := map[string][]string{
			"ingest_documents":   {"ADMIN", "TEACHER"},
			"process_document":   {"ADMIN", "TEACHER"},
			"read_documents":     {"ADMIN", "TEACHER"},
			"read_gcs_files":     {"ADMIN", "TEACHER"},
			"read_document_list": {"ADMIN", "TEACHER", "STUDENT"},
			"read_subjects":      {"ADMIN", "TEACHER", "STUDENT"},
			"read_users":         {"ADMIN"},
			"generate_mcqs":      {"ADMIN", "TEACHER", "STUDENT"},
		}

		for endpoint, names := range endpointRoles {
			for _, name := range names {
				var exists int
				if err := db.Raw(
					"SELECT 1 FROM endpoint_roles WHERE endpoint_name = ? AND role_id = ?",
					endpoint, roleIDs[name],
				).Row().Scan(&exists); err == nil {
					continue
				}
				if err := db.Exec(
					"INSERT INTO endpoint_roles (endpoint_name, role_id, created_at) VALUES (?, ?, now())",
					endpoint, roleIDs[name],
				).Error; err != nil {
					log.Fatalf("failed to map endpoint %s to role %s: %v", endpoint, name, err)
				}
			}
			fmt.Printf("Mapped endpoint %s to roles %v\n", endpoint, names)
		}

		fmt.Println("Seeding complete")
	},
}
