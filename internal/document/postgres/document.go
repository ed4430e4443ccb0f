package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/aignite/docqa-backend/internal/document"
	"github.com/aignite/docqa-backend/internal/storage"
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

// CreateURI inserts the ingestion row. A duplicate (uri, user_id) insert
// resolves to the row that won the race instead of failing.
func (r *Repository) CreateURI(u *document.URI) (*document.URI, error) {
	u.CreatedAt = time.Now().UTC()
	err := r.db.Create(u).Error
	if err == nil {
		return u, nil
	}
	if !isDuplicate(err) {
		return nil, err
	}

	var existing document.URI
	if err := r.db.Where("uri = ? AND user_id = ?", u.URI, u.UserID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *Repository) UpdateURIStatus(id int64, status string) error {
	now := time.Now().UTC()
	res := r.db.Model(&document.URI{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            status,
		"last_processed_at": now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrURINotFound
	}
	return nil
}

func (r *Repository) GetGCSFile(id int64) (*document.GCSFile, error) {
	var file document.GCSFile
	if err := r.db.First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// UpsertGCSFiles inserts listed objects, reusing any row that already
// matches on object id, ingestion job and md5 hash. The returned slice
// covers every input object with its database id populated.
func (r *Repository) UpsertGCSFiles(files []*document.GCSFile) ([]*document.GCSFile, error) {
	stored := make([]*document.GCSFile, 0, len(files))
	for _, f := range files {
		var existing document.GCSFile
		err := r.db.Where("uri = ? AND uri_id = ? AND md5hash = ?", f.URI, f.URIID, f.MD5Hash).
			First(&existing).Error
		if err == nil {
			stored = append(stored, &existing)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if err := r.db.Create(f).Error; err != nil {
			if !isDuplicate(err) {
				return nil, err
			}
			// lost an insert race, read the winner
			if err := r.db.Where("uri = ? AND uri_id = ? AND md5hash = ?", f.URI, f.URIID, f.MD5Hash).
				First(&existing).Error; err != nil {
				return nil, err
			}
			stored = append(stored, &existing)
			continue
		}
		stored = append(stored, f)
	}
	return stored, nil
}

func (r *Repository) LatestDetailsForFile(gcsFileID int64) (*document.DocumentDetails, error) {
	var details document.DocumentDetails
	err := r.db.Where("gcs_file_id = ?", gcsFileID).
		Order("updated_at DESC").
		First(&details).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &details, nil
}

func (r *Repository) CreateDocumentDetails(d *document.DocumentDetails) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	return r.db.Create(d).Error
}

func (r *Repository) ListDocumentDetails(limit, offset int) ([]*document.DocumentDetails, error) {
	var details []*document.DocumentDetails
	err := r.db.Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&details).Error
	return details, err
}

func (r *Repository) ListGCSFiles(uriID int64, limit, offset int) ([]*document.GCSFile, error) {
	var files []*document.GCSFile
	err := r.db.Where("uri_id = ?", uriID).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&files).Error
	return files, err
}

// DocumentList returns one row per file with its most recent subject.
func (r *Repository) DocumentList(limit, offset int) ([]*document.DocumentSummary, error) {
	query := `SELECT gf.id, gf.name, gf.bucket, dd.subject, dd.updated_at
	          FROM gcs_files gf
	          JOIN document_details dd ON dd.gcs_file_id = gf.id
	          WHERE dd.updated_at = (
	              SELECT MAX(updated_at) FROM document_details WHERE gcs_file_id = gf.id
	          )
	          ORDER BY dd.updated_at DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.Raw(query, limit, offset).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*document.DocumentSummary
	for rows.Next() {
		var s document.DocumentSummary
		if err := rows.Scan(&s.GCSFileID, &s.Name, &s.Bucket, &s.Subject, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func (r *Repository) Subjects() ([]string, error) {
	rows, err := r.db.Raw(
		`SELECT DISTINCT subject FROM document_details WHERE subject <> '' ORDER BY subject`,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// FilesMissingDetails lists files with no extraction row yet, for the
// background sweep.
func (r *Repository) FilesMissingDetails(limit int) ([]*document.GCSFile, error) {
	var files []*document.GCSFile
	err := r.db.
		Where("NOT EXISTS (SELECT 1 FROM document_details dd WHERE dd.gcs_file_id = gcs_files.id)").
		Order("id").
		Limit(limit).
		Find(&files).Error
	return files, err
}

// FileURIs resolves file ids to their gs:// object URIs, skipping ids
// with no matching row.
func (r *Repository) FileURIs(gcsFileIDs []int64) ([]string, error) {
	if len(gcsFileIDs) == 0 {
		return nil, nil
	}

	var files []*document.GCSFile
	if err := r.db.Where("id IN ?", gcsFileIDs).Order("id").Find(&files).Error; err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(files))
	for _, f := range files {
		uris = append(uris, storage.ObjectURI(f.Bucket, f.Name))
	}
	return uris, nil
}

// TokenForFile walks file -> ingestion job -> owner -> token so the
// dispatcher can call the processing endpoint as the ingesting user.
func (r *Repository) TokenForFile(gcsFileID int64) (string, int64, error) {
	var token string
	var userID int64

	query := `SELECT t.token, u.user_id
	          FROM gcs_files gf
	          JOIN uris u ON u.id = gf.uri_id
	          JOIN tokens t ON t.user_id = u.user_id
	          WHERE gf.id = ?`

	row := r.db.Raw(query, gcsFileID).Row()
	if err := row.Scan(&token, &userID); err != nil {
		return "", 0, err
	}
	return token, userID, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate") ||
		strings.Contains(err.Error(), "UNIQUE")
}
