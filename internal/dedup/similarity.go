package dedup

import (
	"math"
	"regexp"
	"strings"

	"pulsewire.app/ingest/internal/model"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// preprocess strips URLs and mentions before tokenizing. Links and
// handles dominate term weight in short posts and would pull unrelated
// posts together (same link) or push copies apart (different handles).
func preprocess(text string) []string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	return strings.Fields(strings.ToLower(text))
}

type vector map[string]float64

func (v vector) norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func cosine(a, b vector) float64 {
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, wa := range a {
		dot += wa * b[term]
	}
	na, nb := a.norm(), b.norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// vectorize builds TF-IDF vectors for the batch. IDF is smoothed so a
// term present in every document still carries a small weight.
func vectorize(docs [][]string) []vector {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := float64(len(docs))
	vectors := make([]vector, len(docs))
	for i, doc := range docs {
		if len(doc) == 0 {
			vectors[i] = vector{}
			continue
		}
		tf := make(map[string]int, len(doc))
		for _, term := range doc {
			tf[term]++
		}
		v := make(vector, len(tf))
		for term, count := range tf {
			idf := math.Log(n/(1+float64(df[term]))) + 1
			v[term] = float64(count) / float64(len(doc)) * idf
		}
		vectors[i] = v
	}
	return vectors
}

// SimilarityGroups runs pairwise cosine similarity over TF-IDF vectors
// and unions every pair at or above the threshold. Clusters sharing a
// member collapse into one, so chains A~B, B~C land in a single group
// even when A and C alone fall below the threshold. Each group's score
// is the weakest pairwise similarity that joined it.
func SimilarityGroups(posts []model.Post, threshold float64) []Group {
	if len(posts) < 2 || threshold <= 0 {
		return nil
	}

	docs := make([][]string, len(posts))
	for i, p := range posts {
		docs[i] = preprocess(p.Text)
	}
	vectors := vectorize(docs)

	parent := make([]int, len(posts))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	minScore := make(map[int]float64)
	union := func(a, b int, score float64) {
		ra, rb := find(a), find(b)
		if ra == rb {
			if score < minScore[ra] {
				minScore[ra] = score
			}
			return
		}
		low := score
		if s, ok := minScore[ra]; ok && s < low {
			low = s
		}
		if s, ok := minScore[rb]; ok && s < low {
			low = s
		}
		parent[rb] = ra
		delete(minScore, rb)
		minScore[ra] = low
	}

	for i := 0; i < len(posts); i++ {
		for j := i + 1; j < len(posts); j++ {
			if sim := cosine(vectors[i], vectors[j]); sim >= threshold {
				union(i, j, sim)
			}
		}
	}

	clusters := make(map[int][]model.Post)
	var rootOrder []int
	for i := range posts {
		root := find(i)
		if _, seen := clusters[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		clusters[root] = append(clusters[root], posts[i])
	}

	var groups []Group
	for _, root := range rootOrder {
		members := clusters[root]
		if len(members) < 2 {
			continue
		}
		sortByCreatedAt(members)
		score := minScore[root]
		groups = append(groups, Group{
			Kind:    model.GroupKindSimilar,
			Score:   &score,
			Members: members,
		})
	}
	return groups
}
