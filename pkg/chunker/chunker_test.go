package chunker_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lumihq/recall/pkg/chunker"
)

func TestChunker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chunker Suite")
}

var _ = Describe("Chunker", func() {
	Describe("New", func() {
		It("rejects a non-positive size", func() {
			_, err := chunker.New(0, 0)
			Expect(err).To(HaveOccurred())

			_, err = chunker.New(-5, 0)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an overlap that is negative or not smaller than size", func() {
			_, err := chunker.New(100, -1)
			Expect(err).To(HaveOccurred())

			_, err = chunker.New(100, 100)
			Expect(err).To(HaveOccurred())

			_, err = chunker.New(100, 150)
			Expect(err).To(HaveOccurred())
		})

		It("accepts zero overlap", func() {
			c, err := chunker.New(100, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Overlap()).To(Equal(0))
		})
	})

	Describe("Split", func() {
		var c *chunker.Chunker

		BeforeEach(func() {
			var err error
			c = nil
			c, err = chunker.New(50, 10)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns nil for empty input", func() {
			Expect(c.Split("")).To(BeNil())
		})

		It("returns the whole text as one chunk when it fits", func() {
			text := "a short message"
			Expect(c.Split(text)).To(Equal([]string{text}))
		})

		It("returns the text unchanged when it is exactly the chunk size", func() {
			text := strings.Repeat("x", 50)
			Expect(c.Split(text)).To(Equal([]string{text}))
		})

		It("bounds every chunk by the configured size", func() {
			text := strings.Repeat("word and more words in a longer running sentence ", 40)
			for _, chunk := range c.Split(text) {
				Expect(len([]rune(chunk))).To(BeNumerically("<=", 50))
				Expect(chunk).NotTo(BeEmpty())
			}
		})

		It("prefers a whitespace break over cutting mid-word", func() {
			// Words are 7 runes; boundaries land mid-word without lookback.
			text := strings.Repeat("abcdef ", 30)
			for _, chunk := range c.Split(text) {
				Expect(strings.HasSuffix(chunk, " ")).To(BeTrue())
			}
		})

		It("hard-cuts when no whitespace is in range", func() {
			text := strings.Repeat("x", 200)
			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for _, chunk := range chunks[:len(chunks)-1] {
				Expect(len([]rune(chunk))).To(Equal(50))
			}
		})

		It("starts each chunk with the tail of the previous one", func() {
			text := strings.Repeat("x", 200)
			chunks := c.Split(text)
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				tail := string(prev[len(prev)-10:])
				Expect(strings.HasPrefix(chunks[i], tail)).To(BeTrue())
			}
		})

		It("covers the full input through overlapping chunks", func() {
			text := strings.Repeat("x", 237)
			chunks := c.Split(text)

			// Strip the overlap from every chunk after the first and the
			// concatenation must reproduce the input.
			var rebuilt strings.Builder
			rebuilt.WriteString(chunks[0])
			for _, chunk := range chunks[1:] {
				runes := []rune(chunk)
				rebuilt.WriteString(string(runes[10:]))
			}
			Expect(rebuilt.String()).To(Equal(text))
		})

		It("is deterministic", func() {
			text := strings.Repeat("some conversational text with variety ", 25)
			Expect(c.Split(text)).To(Equal(c.Split(text)))
		})

		It("counts runes, not bytes", func() {
			// Multi-byte runes; 60 of them exceed a 50-rune chunk.
			text := strings.Repeat("日", 60)
			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for _, chunk := range chunks {
				Expect(len([]rune(chunk))).To(BeNumerically("<=", 50))
			}
		})

		It("makes progress when overlap would stall the window", func() {
			// A tiny size with aggressive overlap still terminates.
			tiny, err := chunker.New(5, 4)
			Expect(err).NotTo(HaveOccurred())
			chunks := tiny.Split(strings.Repeat("x", 40))
			Expect(chunks).NotTo(BeEmpty())
			total := 0
			for _, chunk := range chunks {
				total += len([]rune(chunk))
			}
			Expect(total).To(BeNumerically(">=", 40))
		})
	})
})
