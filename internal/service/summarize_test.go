package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/common/llm"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/service"
	"pulsewire.app/ingest/internal/store"
)

const longText = "The city council voted late on Tuesday to approve the revised transit expansion plan, committing funds to three new light rail corridors over the next decade."

var _ = Describe("SummarizeService", func() {
	var (
		ctx    context.Context
		stores *mockStores
		cache  *service.SummaryCache
		cfg    config.SummaryConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMockStores()
		cache = service.NewSummaryCache(time.Hour)
		cfg = config.SummaryConfig{
			Concurrency:        5,
			ShortTextThreshold: 80,
			CacheTTL:           time.Hour,
			MaxTokens:          1024,
			TargetLanguage:     "English",
		}

		Expect(id.Init(1)).To(Succeed())
	})

	newService := func(providers ...llm.Provider) service.SummarizeService {
		return service.NewSummarizeService(stores, providers, cache, newRegistry(), cfg, nil)
	}

	loadPosts := func(posts ...model.Post) {
		stores.posts.getByIDsFn = func(_ context.Context, _ []string) ([]model.Post, error) {
			return posts, nil
		}
	}

	Context("when no post ids are given", func() {
		It("rejects the request", func() {
			_, err := newService(&mockProvider{name: "openai"}).Summarize(ctx, service.SummarizeParams{})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when the post text is long enough to summarize", func() {
		It("generates a summary and persists usage", func() {
			loadPosts(storedPost("p1", longText, 0))

			provider := &mockProvider{
				name:  "openai",
				model: "gpt-4o-mini",
				completeFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
					return &llm.Completion{
						Text:             `{"summary":"Council approved the transit plan."}`,
						PromptTokens:     120,
						CompletionTokens: 18,
						Cost:             0.0003,
					}, nil
				},
			}

			result, err := newService(provider).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generated).To(Equal(1))
			Expect(result.Failed).To(BeZero())
			Expect(result.Providers["openai"].Requests).To(Equal(1))
			Expect(result.Providers["openai"].PromptTokens).To(Equal(120))

			records := stores.summaries.records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].Summary).To(Equal("Council approved the transit plan."))
			Expect(records[0].Provider).To(Equal("openai"))
			Expect(records[0].IsGenerated).To(BeTrue())
			Expect(records[0].TotalTokens).To(Equal(138))
		})
	})

	Context("when the post text is below the short-text threshold", func() {
		It("stores the text verbatim without calling any provider", func() {
			loadPosts(storedPost("p1", "gm", 0))

			provider := &mockProvider{name: "openai"}
			result, err := newService(provider).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Short).To(Equal(1))
			Expect(provider.callCount()).To(BeZero())

			records := stores.summaries.records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].Summary).To(Equal("gm"))
			Expect(records[0].IsGenerated).To(BeFalse())
		})
	})

	Context("when the first provider fails permanently", func() {
		It("advances to the next provider without retrying", func() {
			loadPosts(storedPost("p1", longText, 0))

			failing := &mockProvider{
				name: "openai",
				completeFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
					return nil, errors.New("invalid api key")
				},
			}
			healthy := &mockProvider{
				name:  "anthropic",
				model: "claude-3-5-haiku-latest",
			}

			result, err := newService(failing, healthy).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generated).To(Equal(1))
			Expect(failing.callCount()).To(Equal(1))
			Expect(healthy.callCount()).To(Equal(1))

			records := stores.summaries.records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].Provider).To(Equal("anthropic"))
		})
	})

	Context("when the first provider times out", func() {
		It("retries it exactly once before advancing", func() {
			loadPosts(storedPost("p1", longText, 0))

			timingOut := &mockProvider{
				name: "openai",
				completeFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
					return nil, context.DeadlineExceeded
				},
			}
			healthy := &mockProvider{name: "anthropic"}

			result, err := newService(timingOut, healthy).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generated).To(Equal(1))
			Expect(timingOut.callCount()).To(Equal(2))
			Expect(healthy.callCount()).To(Equal(1))
		})
	})

	Context("when every provider fails", func() {
		It("fails the post without aborting the batch", func() {
			loadPosts(
				storedPost("p1", longText, 0),
				storedPost("p2", longText+" A different ending for a different hash.", 1),
			)

			calls := 0
			flaky := &mockProvider{
				name: "openai",
				completeFn: func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
					calls++
					if calls <= 1 {
						return nil, errors.New("invalid api key")
					}
					return &llm.Completion{Text: `{"summary":"ok"}`}, nil
				},
			}
			// Concurrency 1 keeps the call ordering deterministic.
			cfg.Concurrency = 1

			result, err := newService(flaky).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1", "p2"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Failed).To(Equal(1))
			Expect(result.Generated).To(Equal(1))
		})

		It("surfaces a hard failure when every target exhausts the chain", func() {
			loadPosts(storedPost("p1", longText, 0))

			broken := &mockProvider{
				name: "openai",
				completeFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
					return nil, errors.New("invalid api key")
				},
			}

			result, err := newService(broken).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid api key"))
			Expect(result).To(BeNil())
			Expect(stores.summaries.records()).To(BeEmpty())
		})
	})

	Context("when the same content was summarized before", func() {
		It("serves the second post from the cache with zero token usage", func() {
			provider := &mockProvider{
				name:  "openai",
				model: "gpt-4o-mini",
				completeFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
					return &llm.Completion{Text: `{"summary":"cached once"}`, PromptTokens: 50, CompletionTokens: 10, Cost: 0.0001}, nil
				},
			}
			svc := newService(provider)

			loadPosts(storedPost("p1", longText, 0))
			_, err := svc.Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})
			Expect(err).NotTo(HaveOccurred())

			loadPosts(storedPost("p2", longText, 1))
			result, err := svc.Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p2"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Cached).To(Equal(1))
			Expect(result.Generated).To(BeZero())
			Expect(provider.callCount()).To(Equal(1))

			records := stores.summaries.records()
			Expect(records).To(HaveLen(2))
			Expect(records[1].PostID).To(Equal("p2"))
			Expect(records[1].Cached).To(BeTrue())
			Expect(records[1].TotalTokens).To(BeZero())
			Expect(records[1].Summary).To(Equal("cached once"))
		})
	})

	Context("when a refresh is forced", func() {
		It("bypasses the cache and asks a provider again", func() {
			provider := &mockProvider{
				name:  "openai",
				model: "gpt-4o-mini",
				completeFn: func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
					return &llm.Completion{Text: `{"summary":"fresh take"}`, PromptTokens: 50, CompletionTokens: 10, Cost: 0.0001}, nil
				},
			}
			svc := newService(provider)

			loadPosts(storedPost("p1", longText, 0))
			_, err := svc.Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}, ForceRefresh: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generated).To(Equal(1))
			Expect(result.Cached).To(BeZero())
			Expect(provider.callCount()).To(Equal(2))
		})
	})

	Context("when a stored summary exists for the content hash", func() {
		It("reuses it and warms the cache", func() {
			loadPosts(storedPost("p1", longText, 0))

			existing := &model.SummaryRecord{
				Summary:     "from storage",
				Provider:    "anthropic",
				Model:       "claude-3-5-haiku-latest",
				IsGenerated: true,
				ContentHash: service.ContentHash("summary", longText),
			}
			stores.summaries.findByContentHashFn = func(_ context.Context, hash string) (*model.SummaryRecord, error) {
				if hash == existing.ContentHash {
					return existing, nil
				}
				return nil, store.ErrNotFound
			}

			provider := &mockProvider{name: "openai"}
			result, err := newService(provider).Summarize(ctx, service.SummarizeParams{PostIDs: []string{"p1"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Cached).To(Equal(1))
			Expect(provider.callCount()).To(BeZero())
			Expect(cache.Len()).To(Equal(1))
		})
	})

	Context("when the post is a group representative", func() {
		It("fans the summary out to the other members", func() {
			groupID := int64(7)
			rep := storedPost("rep", longText, 0)
			rep.GroupID = &groupID
			loadPosts(rep)

			stores.groups.getByIDFn = func(_ context.Context, gid int64) (*model.DuplicateGroup, error) {
				Expect(gid).To(Equal(groupID))
				return &model.DuplicateGroup{
					ID:               groupID,
					RepresentativeID: "rep",
					Kind:             model.GroupKindExact,
					MemberIDs:        []string{"rep", "m1", "m2"},
				}, nil
			}

			result, err := newService(&mockProvider{name: "openai", model: "gpt-4o-mini"}).
				Summarize(ctx, service.SummarizeParams{PostIDs: []string{"rep"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generated).To(Equal(1))
			Expect(result.FannedOut).To(Equal(2))

			records := stores.summaries.records()
			Expect(records).To(HaveLen(3))
			for _, record := range records[1:] {
				Expect(record.Cached).To(BeTrue())
				Expect(record.TotalTokens).To(BeZero())
				Expect(record.Summary).To(Equal("a summary"))
			}
		})
	})

	Context("when a grouped member is requested", func() {
		It("summarizes the representative instead", func() {
			groupID := int64(9)
			member := storedPost("m1", longText, 1)
			member.GroupID = &groupID
			rep := storedPost("rep", longText, 0)
			rep.GroupID = &groupID

			loadPosts(member)
			stores.groups.getByIDFn = func(_ context.Context, _ int64) (*model.DuplicateGroup, error) {
				return &model.DuplicateGroup{
					ID:               groupID,
					RepresentativeID: "rep",
					MemberIDs:        []string{"rep", "m1"},
				}, nil
			}
			stores.posts.getByIDFn = func(_ context.Context, postID string) (*model.Post, error) {
				Expect(postID).To(Equal("rep"))
				return &rep, nil
			}

			result, err := newService(&mockProvider{name: "openai"}).
				Summarize(ctx, service.SummarizeParams{PostIDs: []string{"m1"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generated).To(Equal(1))
			Expect(result.FannedOut).To(Equal(1))

			records := stores.summaries.records()
			Expect(records[0].PostID).To(Equal("rep"))
		})
	})
})
