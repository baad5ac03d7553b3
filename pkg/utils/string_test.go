package utils_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lumihq/recall/pkg/utils"
)

func TestUtils(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Utils Suite")
}

var _ = Describe("Truncate", func() {
	It("returns short strings unchanged", func() {
		Expect(utils.Truncate("hello", 10)).To(Equal("hello"))
	})

	It("returns strings at the limit unchanged", func() {
		Expect(utils.Truncate("hello", 5)).To(Equal("hello"))
	})

	It("truncates long strings with an ellipsis", func() {
		Expect(utils.Truncate("hello world", 5)).To(Equal("hello..."))
	})
})
