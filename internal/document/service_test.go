package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aignite/docqa-backend/internal/docai"
	"github.com/aignite/docqa-backend/internal/storage"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestDocument(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Document Module Suite")
}

type mockDocumentRepository struct {
	uris        map[int64]*URI
	files       map[int64]*GCSFile
	details     map[int64][]*DocumentDetails
	nextURIID   int64
	nextFileID  int64
	createError error
}

func newMockDocumentRepository() *mockDocumentRepository {
	return &mockDocumentRepository{
		uris:    make(map[int64]*URI),
		files:   make(map[int64]*GCSFile),
		details: make(map[int64][]*DocumentDetails),
	}
}

func (m *mockDocumentRepository) CreateURI(u *URI) (*URI, error) {
	if m.createError != nil {
		return nil, m.createError
	}
	for _, existing := range m.uris {
		if existing.URI == u.URI && existing.UserID == u.UserID {
			return existing, nil
		}
	}
	m.nextURIID++
	u.ID = m.nextURIID
	u.CreatedAt = time.Now()
	m.uris[u.ID] = u
	return u, nil
}

func (m *mockDocumentRepository) UpdateURIStatus(id int64, status string) error {
	u, ok := m.uris[id]
	if !ok {
		return ErrURINotFound
	}
	u.Status = status
	return nil
}

func (m *mockDocumentRepository) GetGCSFile(id int64) (*GCSFile, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, nil
	}
	return f, nil
}

func (m *mockDocumentRepository) UpsertGCSFiles(files []*GCSFile) ([]*GCSFile, error) {
	stored := make([]*GCSFile, 0, len(files))
	for _, f := range files {
		var match *GCSFile
		for _, existing := range m.files {
			if existing.URI == f.URI && existing.URIID == f.URIID && existing.MD5Hash == f.MD5Hash {
				match = existing
				break
			}
		}
		if match != nil {
			stored = append(stored, match)
			continue
		}
		m.nextFileID++
		f.ID = m.nextFileID
		m.files[f.ID] = f
		stored = append(stored, f)
	}
	return stored, nil
}

func (m *mockDocumentRepository) LatestDetailsForFile(gcsFileID int64) (*DocumentDetails, error) {
	rows := m.details[gcsFileID]
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[len(rows)-1], nil
}

func (m *mockDocumentRepository) CreateDocumentDetails(d *DocumentDetails) error {
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.details[d.GCSFileID] = append(m.details[d.GCSFileID], d)
	return nil
}

func (m *mockDocumentRepository) ListDocumentDetails(limit, offset int) ([]*DocumentDetails, error) {
	var out []*DocumentDetails
	for _, rows := range m.details {
		out = append(out, rows...)
	}
	return out, nil
}

func (m *mockDocumentRepository) ListGCSFiles(uriID int64, limit, offset int) ([]*GCSFile, error) {
	var out []*GCSFile
	for _, f := range m.files {
		if f.URIID == uriID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockDocumentRepository) DocumentList(limit, offset int) ([]*DocumentSummary, error) {
	return nil, nil
}

func (m *mockDocumentRepository) Subjects() ([]string, error) {
	seen := make(map[string]bool)
	var subjects []string
	for _, rows := range m.details {
		for _, d := range rows {
			if d.Subject != "" && !seen[d.Subject] {
				seen[d.Subject] = true
				subjects = append(subjects, d.Subject)
			}
		}
	}
	return subjects, nil
}

func (m *mockDocumentRepository) FilesMissingDetails(limit int) ([]*GCSFile, error) {
	var out []*GCSFile
	for _, f := range m.files {
		if len(m.details[f.ID]) == 0 {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockLister struct {
	objects []storage.ObjectMeta
	err     error
}

func (m *mockLister) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.objects, nil
}

type mockGenerator struct {
	extraction map[string]any
	err        error
	calls      int
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (m *mockGenerator) ExtractDocumentDetails(ctx context.Context, fileURI, prompt string) (map[string]any, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.extraction, nil
}

type mockDispatcher struct {
	enqueued []int64
	err      error
}

func (m *mockDispatcher) Enqueue(gcsFileID, userID int64) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, gcsFileID)
	return nil
}

var _ = ginkgo.Describe("DocumentService", func() {
	var (
		service    *Service
		repo       *mockDocumentRepository
		lister     *mockLister
		generator  *mockGenerator
		dispatcher *mockDispatcher
		ctx        context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ginkgo.BeforeEach(func() {
		repo = newMockDocumentRepository()
		lister = &mockLister{
			objects: []storage.ObjectMeta{
				{URI: "bucket/notes/ch1.pdf/1", Name: "notes/ch1.pdf", Bucket: "bucket", MD5Hash: "aaa", Size: 100},
				{URI: "bucket/notes/ch2.pdf/1", Name: "notes/ch2.pdf", Bucket: "bucket", MD5Hash: "bbb", Size: 200},
				{URI: "bucket/notes/ch3.pdf/1", Name: "notes/ch3.pdf", Bucket: "bucket", MD5Hash: "ccc", Size: 300},
			},
		}
		generator = &mockGenerator{
			extraction: map[string]any{
				"subject": "Math",
				"chapters": []any{
					map[string]any{"name": "Algebra", "subchapters": []any{"Linear equations", "Quadratics"}},
				},
			},
		}
		dispatcher = &mockDispatcher{}
		service = NewService(repo, lister, generator, dispatcher, 24*time.Hour, testLogger)
		ctx = context.Background()
	})

	ginkgo.Describe("IngestURI", func() {
		ginkgo.It("should store one file per listed object and queue a job for each", func() {
			result, err := service.IngestURI(ctx, 1, "gs://bucket/notes")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.TotalDocumentsFound).To(gomega.Equal(3))
			gomega.Expect(result.Files).To(gomega.HaveLen(3))
			gomega.Expect(dispatcher.enqueued).To(gomega.HaveLen(3))
		})

		ginkgo.It("should mark the ingestion job as processing", func() {
			result, err := service.IngestURI(ctx, 1, "gs://bucket/notes")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.uris[result.URIID].Status).To(gomega.Equal(URIStatusProcessing))
		})

		ginkgo.It("should reuse existing file rows on re-ingest but queue the jobs again", func() {
			first, err := service.IngestURI(ctx, 1, "gs://bucket/notes")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			second, err := service.IngestURI(ctx, 1, "gs://bucket/notes")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(second.URIID).To(gomega.Equal(first.URIID))
			gomega.Expect(len(repo.files)).To(gomega.Equal(3))
			gomega.Expect(dispatcher.enqueued).To(gomega.HaveLen(6))
		})

		ginkgo.It("should reject a non gs:// uri", func() {
			_, err := service.IngestURI(ctx, 1, "https://bucket/notes")

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(dispatcher.enqueued).To(gomega.BeEmpty())
		})

		ginkgo.It("should reject an empty uri", func() {
			_, err := service.IngestURI(ctx, 1, "")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should surface listing failures", func() {
			lister.err = errors.New("bucket unreachable")

			_, err := service.IngestURI(ctx, 1, "gs://bucket/notes")
			gomega.Expect(err).To(gomega.MatchError(lister.err))
		})
	})

	ginkgo.Describe("ProcessDocument", func() {
		var fileID int64

		ginkgo.BeforeEach(func() {
			result, err := service.IngestURI(ctx, 1, "gs://bucket/notes")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			fileID = result.Files[0].GCSFileID
		})

		ginkgo.It("should persist the normalized extraction", func() {
			result, err := service.ProcessDocument(ctx, fileID)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Skipped).To(gomega.BeFalse())
			gomega.Expect(result.Details.Subject).To(gomega.Equal("Math"))
			gomega.Expect(result.Details.Chapters).To(gomega.HaveLen(1))
			gomega.Expect(result.Details.Chapters[0].Subchapters).To(gomega.Equal([]string{"Linear equations", "Quadratics"}))

			stored, err := repo.LatestDetailsForFile(fileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(stored.Subject).To(gomega.Equal("Math"))

			var roundTrip NormalizedDetails
			gomega.Expect(json.Unmarshal(stored.ExtractedData, &roundTrip)).To(gomega.Succeed())
			gomega.Expect(roundTrip.Subject).To(gomega.Equal("Math"))
		})

		ginkgo.It("should fail for an unknown file", func() {
			_, err := service.ProcessDocument(ctx, 9999)
			gomega.Expect(err).To(gomega.Equal(ErrFileNotFound))
		})

		ginkgo.It("should skip re-processing while the details are fresh", func() {
			_, err := service.ProcessDocument(ctx, fileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			result, err := service.ProcessDocument(ctx, fileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Skipped).To(gomega.BeTrue())
			gomega.Expect(generator.calls).To(gomega.Equal(1))
		})

		ginkgo.It("should re-run extraction once the details have aged out", func() {
			_, err := service.ProcessDocument(ctx, fileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			stored, _ := repo.LatestDetailsForFile(fileID)
			stored.UpdatedAt = time.Now().Add(-25 * time.Hour)

			result, err := service.ProcessDocument(ctx, fileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Skipped).To(gomega.BeFalse())
			gomega.Expect(generator.calls).To(gomega.Equal(2))
		})

		ginkgo.It("should persist nothing when extraction output is unusable", func() {
			generator.err = docai.ErrMalformedOutput

			_, err := service.ProcessDocument(ctx, fileID)
			gomega.Expect(err).To(gomega.MatchError(docai.ErrMalformedOutput))

			stored, _ := repo.LatestDetailsForFile(fileID)
			gomega.Expect(stored).To(gomega.BeNil())
		})

		ginkgo.It("should tolerate missing chapters in the payload", func() {
			generator.extraction = map[string]any{"subject": "History"}

			result, err := service.ProcessDocument(ctx, fileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Details.Subject).To(gomega.Equal("History"))
			gomega.Expect(result.Details.Chapters).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("Subjects", func() {
		ginkgo.It("should list distinct subjects from stored extractions", func() {
			result, err := service.IngestURI(ctx, 1, "gs://bucket/notes")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ProcessDocument(ctx, result.Files[0].GCSFileID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			subjects, err := service.Subjects(ctx)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(subjects).To(gomega.Equal([]string{"Math"}))
		})
	})
})
