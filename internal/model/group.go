package model

import "time"

type GroupKind string

const (
	GroupKindExact   GroupKind = "exact"
	GroupKindSimilar GroupKind = "similar"
)

// DuplicateGroup ties together posts carrying the same (or nearly the
// same) content. The representative is the earliest-created member and
// carries the canonical summary for the whole group.
type DuplicateGroup struct {
	ID               int64     `json:"id"`
	RepresentativeID string    `json:"representative_id"`
	Kind             GroupKind `json:"kind"`

	// Score is present only for similarity groups: the minimum pairwise
	// cosine similarity that joined the members, in [0, 1].
	Score *float64 `json:"score,omitempty"`

	// MemberIDs is non-empty and always includes the representative.
	MemberIDs []string `json:"member_ids"`

	CreatedAt time.Time `json:"created_at"`
}

// MemberCount returns the number of posts in the group.
func (g *DuplicateGroup) MemberCount() int {
	return len(g.MemberIDs)
}
