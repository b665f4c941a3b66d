package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go"

	"pulsewire.app/ingest/common/llm"
)

var _ = Describe("New", func() {
	It("rejects an empty API key", func() {
		provider, err := llm.New(llm.ProviderOpenAI, llm.Config{})
		Expect(err).To(HaveOccurred())
		Expect(provider).To(BeNil())
	})

	It("rejects an unknown provider name", func() {
		provider, err := llm.New("oracle", llm.Config{APIKey: "k"})
		Expect(err).To(HaveOccurred())
		Expect(provider).To(BeNil())
	})

	It("builds providers with their configured models", func() {
		provider, err := llm.New(llm.ProviderAnthropic, llm.Config{APIKey: "k", Model: "claude-3-5-haiku-latest"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name()).To(Equal("anthropic"))
		Expect(provider.Model()).To(Equal("claude-3-5-haiku-latest"))
	})
})

var _ = Describe("Classify", func() {
	DescribeTable("maps API status codes to error classes",
		func(status int, want llm.ErrorClass) {
			err := &openai.Error{StatusCode: status}
			Expect(llm.Classify(err)).To(Equal(want))
		},
		Entry("rate limited", 429, llm.ErrorTemporary),
		Entry("service unavailable", 503, llm.ErrorTemporary),
		Entry("gateway timeout", 504, llm.ErrorTemporary),
		Entry("unauthorized", 401, llm.ErrorPermanent),
		Entry("payment required", 402, llm.ErrorPermanent),
		Entry("bad request", 400, llm.ErrorUnknown),
		Entry("server error", 500, llm.ErrorUnknown),
	)

	It("treats deadline exceeded as temporary", func() {
		Expect(llm.Classify(context.DeadlineExceeded)).To(Equal(llm.ErrorTemporary))
	})

	It("treats network errors as temporary", func() {
		var err error = &net.DNSError{Err: "no such host", IsTimeout: false}
		Expect(llm.Classify(fmt.Errorf("calling provider: %w", err))).To(Equal(llm.ErrorTemporary))
	})

	It("treats plain errors as unknown", func() {
		Expect(llm.Classify(errors.New("boom"))).To(Equal(llm.ErrorUnknown))
	})
})
