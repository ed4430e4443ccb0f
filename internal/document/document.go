package document

import (
	"encoding/json"
	"errors"
	"time"
)

// URI is one ingestion job: a gs:// prefix recorded for a user.
type URI struct {
	ID              int64      `json:"id" gorm:"primaryKey"`
	URI             string     `json:"uri" gorm:"column:uri"`
	UserID          int64      `json:"user_id"`
	CreatedAt       time.Time  `json:"created_at"`
	LastProcessedAt *time.Time `json:"last_processed_at"`
	Status          string     `json:"status"`
	ErrorMessage    *string    `json:"error_message"`
	CreatedBySystem *string    `json:"created_by_system"`
}

func (URI) TableName() string {
	return "uris"
}

const (
	URIStatusPending    = "pending"
	URIStatusProcessing = "processing"
)

// GCSFile is the metadata row for one listed storage object. The object id,
// parent ingestion job and md5 hash together form the dedup key, so
// re-ingesting the same prefix is idempotent.
type GCSFile struct {
	ID           int64           `json:"id" gorm:"primaryKey"`
	URI          string          `json:"uri" gorm:"column:uri"`
	URIID        int64           `json:"uri_id" gorm:"column:uri_id"`
	Name         string          `json:"name"`
	Bucket       string          `json:"bucket"`
	ContentType  string          `json:"contenttype" gorm:"column:contenttype"`
	Size         int64           `json:"size"`
	MD5Hash      string          `json:"md5hash" gorm:"column:md5hash"`
	CRC32C       string          `json:"crc32c" gorm:"column:crc32c"`
	Etag         string          `json:"etag"`
	TimeCreated  *time.Time      `json:"timecreated" gorm:"column:timecreated"`
	Updated      *time.Time      `json:"updated"`
	FileMetadata json.RawMessage `json:"file_metadata" gorm:"column:file_metadata"`
}

func (GCSFile) TableName() string {
	return "gcs_files"
}

// DocumentDetails is one extraction result. Rows are appended, not updated;
// the freshness guard at the endpoint keeps redundant runs down.
type DocumentDetails struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	GCSFileID     int64           `json:"gcs_file_id" gorm:"column:gcs_file_id"`
	Subject       string          `json:"subject"`
	ExtractedData json.RawMessage `json:"extracted_data" gorm:"column:extracted_data"`
	FullMetadata  json.RawMessage `json:"full_metadata" gorm:"column:full_metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (DocumentDetails) TableName() string {
	return "document_details"
}

// Chapter is the normalized shape derived from a raw extraction payload.
type Chapter struct {
	Name        string   `json:"name"`
	Subchapters []string `json:"subchapters"`
}

type NormalizedDetails struct {
	Subject  string    `json:"subject"`
	Chapters []Chapter `json:"chapters"`
}

// DocumentSummary joins a file with its latest extraction for list views.
type DocumentSummary struct {
	GCSFileID int64     `json:"gcs_file_id"`
	Name      string    `json:"name"`
	Bucket    string    `json:"bucket"`
	Subject   string    `json:"subject"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RepositoryAPI interface {
	CreateURI(u *URI) (*URI, error)
	UpdateURIStatus(id int64, status string) error
	GetGCSFile(id int64) (*GCSFile, error)
	UpsertGCSFiles(files []*GCSFile) ([]*GCSFile, error)
	LatestDetailsForFile(gcsFileID int64) (*DocumentDetails, error)
	CreateDocumentDetails(d *DocumentDetails) error
	ListDocumentDetails(limit, offset int) ([]*DocumentDetails, error)
	ListGCSFiles(uriID int64, limit, offset int) ([]*GCSFile, error)
	DocumentList(limit, offset int) ([]*DocumentSummary, error)
	Subjects() ([]string, error)
	FilesMissingDetails(limit int) ([]*GCSFile, error)
}

// DispatcherAPI enqueues one background extraction per ingested file.
type DispatcherAPI interface {
	Enqueue(gcsFileID, userID int64) error
}

var (
	ErrFileNotFound    = errors.New("gcs file not found")
	ErrURINotFound     = errors.New("uri not found")
	ErrDetailsNotFound = errors.New("document details not found")
)
