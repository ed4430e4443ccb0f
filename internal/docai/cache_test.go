package docai

import (
	"fmt"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("SessionCache", func() {
	var (
		cache *SessionCache
		clock time.Time
	)

	ginkgo.BeforeEach(func() {
		cache = NewSessionCache(time.Minute, 3)
		clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		cache.now = func() time.Time { return clock }
	})

	ginkgo.It("should return stored values", func() {
		cache.Put("user:1", "history")

		value, ok := cache.Get("user:1")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(value).To(gomega.Equal("history"))
	})

	ginkgo.It("should miss on unknown keys", func() {
		_, ok := cache.Get("user:404")
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should expire entries not accessed within the TTL", func() {
		cache.Put("user:1", "history")

		clock = clock.Add(2 * time.Minute)

		_, ok := cache.Get("user:1")
		gomega.Expect(ok).To(gomega.BeFalse())
		gomega.Expect(cache.Len()).To(gomega.Equal(0))
	})

	ginkgo.It("should keep entries alive while they are accessed", func() {
		cache.Put("user:1", "history")

		for i := 0; i < 4; i++ {
			clock = clock.Add(30 * time.Second)
			_, ok := cache.Get("user:1")
			gomega.Expect(ok).To(gomega.BeTrue())
		}
	})

	ginkgo.It("should evict the least recently used entry at capacity", func() {
		for i := 1; i <= 3; i++ {
			cache.Put(fmt.Sprintf("user:%d", i), i)
			clock = clock.Add(time.Second)
		}

		// touch user:1 so user:2 becomes the oldest
		_, ok := cache.Get("user:1")
		gomega.Expect(ok).To(gomega.BeTrue())
		clock = clock.Add(time.Second)

		cache.Put("user:4", 4)

		_, ok = cache.Get("user:2")
		gomega.Expect(ok).To(gomega.BeFalse())
		_, ok = cache.Get("user:1")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(cache.Len()).To(gomega.Equal(3))
	})

	ginkgo.It("should remove entries on delete", func() {
		cache.Put("user:1", "history")
		cache.Delete("user:1")

		_, ok := cache.Get("user:1")
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
