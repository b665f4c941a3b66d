package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/dedup"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/service"
	"pulsewire.app/ingest/internal/task"
)

func storedPost(postID, text string, minute int) model.Post {
	return model.Post{
		ID:        postID,
		Text:      text,
		CreatedAt: time.Date(2026, 3, 1, 12, minute, 0, 0, time.UTC),
	}
}

var _ = Describe("DedupService", func() {
	var (
		ctx      context.Context
		stores   *mockStores
		producer *mockProducer
		registry *task.Registry
		svc      service.DedupService
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMockStores()
		producer = &mockProducer{}
		registry = newRegistry()

		Expect(id.Init(1)).To(Succeed())

		svc = service.NewDedupService(
			stores,
			dedup.New(0.85),
			registry,
			producer,
			config.DedupConfig{BatchSize: 1000, SimilarityThreshold: 0.85},
			nil,
		)
	})

	Context("when no post ids are given", func() {
		It("rejects the request", func() {
			_, err := svc.Deduplicate(ctx, service.DedupParams{})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when the batch holds three identical posts", func() {
		BeforeEach(func() {
			stores.posts.getByIDsFn = func(_ context.Context, _ []string) ([]model.Post, error) {
				return []model.Post{
					storedPost("a", "same text", 3),
					storedPost("b", "same text", 1),
					storedPost("c", "same text", 5),
				}, nil
			}
		})

		It("creates one exact group with the earliest post as representative", func() {
			var created *model.DuplicateGroup
			stores.groups.createWithMembersFn = func(_ context.Context, group *model.DuplicateGroup) error {
				created = group
				return nil
			}

			result, err := svc.Deduplicate(ctx, service.DedupParams{PostIDs: []string{"a", "b", "c"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Groups).To(Equal(1))
			Expect(result.ExactGroups).To(Equal(1))
			Expect(result.Affected).To(Equal(2))
			Expect(result.Preserved).To(Equal(1))

			Expect(created).NotTo(BeNil())
			Expect(created.RepresentativeID).To(Equal("b"))
			Expect(created.MemberIDs).To(ConsistOf("a", "b", "c"))
			Expect(created.Kind).To(Equal(model.GroupKindExact))
		})

		It("enqueues a summarize task for the representative", func() {
			_, err := svc.Deduplicate(ctx, service.DedupParams{PostIDs: []string{"a", "b", "c"}})
			Expect(err).NotTo(HaveOccurred())

			messages := producer.enqueued()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].TaskType).To(Equal(queue.TaskTypeSummarize))
			Expect(messages[0].PostIDs).To(Equal([]string{"b"}))
		})
	})

	Context("when posts are already grouped", func() {
		It("leaves them untouched so the operation is idempotent", func() {
			groupID := int64(42)
			stores.posts.getByIDsFn = func(_ context.Context, _ []string) ([]model.Post, error) {
				a := storedPost("a", "same text", 1)
				b := storedPost("b", "same text", 2)
				a.GroupID = &groupID
				b.GroupID = &groupID
				return []model.Post{a, b}, nil
			}

			created := 0
			stores.groups.createWithMembersFn = func(_ context.Context, _ *model.DuplicateGroup) error {
				created++
				return nil
			}

			result, err := svc.Deduplicate(ctx, service.DedupParams{PostIDs: []string{"a", "b"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeZero())
			Expect(result.Groups).To(BeZero())
			Expect(result.Preserved).To(Equal(2))
		})
	})

	Context("when the batch mixes one duplicate pair with unrelated posts", func() {
		It("groups only the pair", func() {
			stores.posts.getByIDsFn = func(_ context.Context, _ []string) ([]model.Post, error) {
				return []model.Post{
					storedPost("a", "breaking news about the harbor bridge closure", 1),
					storedPost("b", "breaking news about the harbor bridge closure", 2),
					storedPost("c", "completely different topic one", 3),
					storedPost("d", "another unrelated subject here", 4),
				}, nil
			}

			result, err := svc.Deduplicate(ctx, service.DedupParams{PostIDs: []string{"a", "b", "c", "d"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Groups).To(Equal(1))
			Expect(result.Affected).To(Equal(1))
			Expect(result.Preserved).To(Equal(3))
		})
	})

	Describe("DeduplicateAsync", func() {
		It("returns a pollable task that reaches completion", func() {
			stores.posts.getByIDsFn = func(_ context.Context, _ []string) ([]model.Post, error) {
				return []model.Post{storedPost("a", "solo post", 1)}, nil
			}

			taskID, err := svc.DeduplicateAsync(ctx, service.DedupParams{PostIDs: []string{"a"}})
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() model.TaskStatus {
				t, ok := registry.Get(taskID)
				Expect(ok).To(BeTrue())
				return t.Status
			}, time.Second, 10*time.Millisecond).Should(Equal(model.TaskStatusCompleted))
		})
	})
})
