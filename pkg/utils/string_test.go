package utils

import (
	"runtime"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	DescribeTable("shortening frames for logs",
		func(in string, maxLen int, want string) {
			Expect(Truncate(in, maxLen)).To(Equal(want))
		},
		Entry("under the limit", `data: {"type":"done"}`, 64, `data: {"type":"done"}`),
		Entry("at the limit", "data: x", 7, "data: x"),
		Entry("over the limit", `data: {"type":"text","delta":"hello"}`, 12, `data: {"type...`),
		Entry("on a multi-byte character", "data: €uro", 8, "data: ..."),
		Entry("with a zero limit", "data: x", 0, "..."),
	)
})

var _ = Describe("VersionString", func() {
	It("names the linked version and the go runtime", func() {
		s := VersionString()
		Expect(s).To(HavePrefix("fleet dev ("))
		Expect(s).To(HaveSuffix(" built dev " + runtime.Version()))
	})

	It("prefers a linked sha", func() {
		DeferCleanup(func(prev string) { Sha = prev }, Sha)
		Sha = "abc123"

		Expect(strings.Fields(VersionString())[2]).To(Equal("(abc123)"))
	})
})
