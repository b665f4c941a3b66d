// Package dedup partitions batches of posts into exact-duplicate and
// near-duplicate groups. The exact pass is linear and always runs
// first; the similarity pass is pairwise over whatever the exact pass
// left unclaimed.
package dedup

import (
	"github.com/samber/lo"

	"pulsewire.app/ingest/internal/model"
)

// Group is one detected duplicate cluster, pre-persistence: the batch's
// posts themselves rather than IDs, so callers can pick representatives
// without re-reading storage.
type Group struct {
	Kind    model.GroupKind
	Score   *float64
	Members []model.Post
}

// Representative returns the earliest-created member, which carries the
// canonical summary for the group.
func (g Group) Representative() model.Post {
	return lo.MinBy(g.Members, func(a, b model.Post) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// MemberIDs returns the member post IDs, representative included.
func (g Group) MemberIDs() []string {
	return lo.Map(g.Members, func(p model.Post, _ int) string { return p.ID })
}

type Detector struct {
	threshold float64
}

func New(threshold float64) *Detector {
	return &Detector{threshold: threshold}
}

// Detect runs the exact pass over the whole batch, then the similarity
// pass over the posts the exact pass left unclaimed. Every returned
// group has at least two members; a post appears in at most one group.
func (d *Detector) Detect(posts []model.Post) []Group {
	exact, claimed := ExactGroups(posts)

	residual := lo.Filter(posts, func(p model.Post, _ int) bool {
		_, taken := claimed[p.ID]
		return !taken
	})

	similar := SimilarityGroups(residual, d.threshold)

	return append(exact, similar...)
}
