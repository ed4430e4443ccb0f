package auth

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type mockEndpointRoleSource struct {
	entries   map[string][]int64
	loadCalls int
	failNext  error
}

func (m *mockEndpointRoleSource) AllEndpointRoles() (map[string][]int64, error) {
	m.loadCalls++
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	return m.entries, nil
}

var _ = ginkgo.Describe("PermissionCache", func() {
	var source *mockEndpointRoleSource

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ginkgo.BeforeEach(func() {
		source = &mockEndpointRoleSource{
			entries: map[string][]int64{
				"read_subjects": {1, 2, 3},
			},
		}
	})

	ginkgo.It("should serve the snapshot without reloading inside the TTL", func() {
		cache := NewPermissionCache(source, time.Minute, testLogger)
		gomega.Expect(cache.Load()).To(gomega.Succeed())

		for i := 0; i < 5; i++ {
			ids, err := cache.RoleIDs("read_subjects")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ids).To(gomega.Equal([]int64{1, 2, 3}))
		}
		gomega.Expect(source.loadCalls).To(gomega.Equal(1))
	})

	ginkgo.It("should return an empty mapping for unknown endpoints", func() {
		cache := NewPermissionCache(source, time.Minute, testLogger)
		gomega.Expect(cache.Load()).To(gomega.Succeed())

		ids, err := cache.RoleIDs("never_mapped")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ids).To(gomega.BeEmpty())
	})

	ginkgo.It("should refresh once the snapshot is older than the TTL", func() {
		cache := NewPermissionCache(source, time.Nanosecond, testLogger)
		gomega.Expect(cache.Load()).To(gomega.Succeed())

		source.entries = map[string][]int64{
			"read_subjects": {1},
		}
		time.Sleep(time.Millisecond)

		ids, err := cache.RoleIDs("read_subjects")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ids).To(gomega.Equal([]int64{1}))
		gomega.Expect(source.loadCalls).To(gomega.BeNumerically(">", 1))
	})

	ginkgo.It("should serve the stale snapshot when a refresh fails", func() {
		cache := NewPermissionCache(source, time.Nanosecond, testLogger)
		gomega.Expect(cache.Load()).To(gomega.Succeed())

		source.failNext = errors.New("database down")
		time.Sleep(time.Millisecond)

		ids, err := cache.RoleIDs("read_subjects")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ids).To(gomega.Equal([]int64{1, 2, 3}))
	})

	ginkgo.It("should fail when no snapshot was ever loaded", func() {
		source.failNext = errors.New("database down")
		cache := NewPermissionCache(source, time.Minute, testLogger)

		_, err := cache.RoleIDs("read_subjects")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
