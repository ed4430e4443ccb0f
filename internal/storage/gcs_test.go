package storage

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestStorage(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Storage Module Suite")
}

var _ = ginkgo.Describe("ParseURI", func() {
	ginkgo.It("should split bucket and prefix", func() {
		bucket, prefix, err := ParseURI("gs://course-materials/physics/term1")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(bucket).To(gomega.Equal("course-materials"))
		gomega.Expect(prefix).To(gomega.Equal("physics/term1"))
	})

	ginkgo.It("should accept a bare bucket", func() {
		bucket, prefix, err := ParseURI("gs://course-materials")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(bucket).To(gomega.Equal("course-materials"))
		gomega.Expect(prefix).To(gomega.BeEmpty())
	})

	ginkgo.It("should reject other schemes", func() {
		_, _, err := ParseURI("https://course-materials/physics")
		gomega.Expect(err).To(gomega.Equal(ErrInvalidURI))
	})

	ginkgo.It("should reject an empty bucket", func() {
		_, _, err := ParseURI("gs:///physics")
		gomega.Expect(err).To(gomega.Equal(ErrInvalidURI))
	})
})

var _ = ginkgo.Describe("ObjectURI", func() {
	ginkgo.It("should build the canonical object reference", func() {
		gomega.Expect(ObjectURI("course-materials", "physics/ch1.pdf")).
			To(gomega.Equal("gs://course-materials/physics/ch1.pdf"))
	})
})
