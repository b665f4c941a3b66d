package dedup

import (
	"regexp"
	"sort"
	"strings"

	"pulsewire.app/ingest/internal/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeText collapses whitespace and case so that trivially
// reformatted copies of the same text hash to the same key.
func normalizeText(text string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " "))
}

// ExactGroups finds exact-duplicate clusters in a single linear pass.
// Reposts are grouped by the ID of the post they reshare, and the
// original joins its reshare group when it appears in the same batch.
// Remaining posts are grouped by normalized text. Singleton buckets are
// discarded. The returned set maps every claimed post ID, so callers
// can run further passes over the residue only.
func ExactGroups(posts []model.Post) ([]Group, map[string]struct{}) {
	byID := make(map[string]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	claimed := make(map[string]struct{})
	var groups []Group

	// Reshare buckets first: a repost and its original are duplicates
	// even when the repost text differs (prefixed handle, truncation).
	repostTargets := make(map[string][]model.Post)
	var targetOrder []string
	for _, p := range posts {
		if !p.IsRepost() {
			continue
		}
		target := p.Reference.TargetID
		if _, seen := repostTargets[target]; !seen {
			targetOrder = append(targetOrder, target)
		}
		repostTargets[target] = append(repostTargets[target], p)
	}
	for _, target := range targetOrder {
		members := repostTargets[target]
		if original, ok := byID[target]; ok {
			members = append(members, original)
		}
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			claimed[m.ID] = struct{}{}
		}
		groups = append(groups, Group{Kind: model.GroupKindExact, Members: members})
	}

	// Text buckets over whatever the reshare pass did not claim.
	textBuckets := make(map[string][]model.Post)
	var keyOrder []string
	for _, p := range posts {
		if _, taken := claimed[p.ID]; taken {
			continue
		}
		key := normalizeText(p.Text)
		if key == "" {
			continue
		}
		if _, seen := textBuckets[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		textBuckets[key] = append(textBuckets[key], p)
	}
	for _, key := range keyOrder {
		members := textBuckets[key]
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			claimed[m.ID] = struct{}{}
		}
		groups = append(groups, Group{Kind: model.GroupKindExact, Members: members})
	}

	for i := range groups {
		sortByCreatedAt(groups[i].Members)
	}
	return groups, claimed
}

func sortByCreatedAt(members []model.Post) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
}
