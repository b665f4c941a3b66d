package model

import "time"

// MaxTextLength is the upper bound on cleaned post text. Longer text is
// truncated during validation, never rejected.
const MaxTextLength = 25000

type ReferenceKind string

const (
	ReferenceKindRepost ReferenceKind = "repost"
	ReferenceKindQuote  ReferenceKind = "quote"
	ReferenceKindReply  ReferenceKind = "reply"
)

// Reference records a post's relationship to another post. At most one
// reference is kept per post; when the provider reports several shapes
// at once the precedence is repost > quote > reply.
type Reference struct {
	TargetID string        `json:"target_id"`
	Kind     ReferenceKind `json:"kind"`
}

type Media struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	URL        string  `json:"url"`
	PreviewURL *string `json:"preview_url,omitempty"`
	Width      *int    `json:"width,omitempty"`
	Height     *int    `json:"height,omitempty"`
	AltText    *string `json:"alt_text,omitempty"`
}

// QuotedContent carries the text/author/media of a quoted or reposted
// post, captured at fetch time so the original survives upstream deletion.
type QuotedContent struct {
	Text         string  `json:"text"`
	AuthorHandle string  `json:"author_handle"`
	AuthorName   string  `json:"author_name,omitempty"`
	Media        []Media `json:"media,omitempty"`
}

// Post is the canonical shape of one short-form post. The ID is
// provider-assigned and globally unique; it is the only key other
// records use to reference a post.
type Post struct {
	ID           string         `json:"id"`
	Text         string         `json:"text"`
	AuthorHandle string         `json:"author_handle"`
	AuthorName   string         `json:"author_name,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Reference    *Reference     `json:"reference,omitempty"`
	Media        []Media        `json:"media,omitempty"`
	Quoted       *QuotedContent `json:"quoted,omitempty"`

	// GroupID is set once the post is claimed by a duplicate group.
	GroupID *int64 `json:"group_id,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// IsRepost reports whether this post is a repost of another.
func (p *Post) IsRepost() bool {
	return p.Reference != nil && p.Reference.Kind == ReferenceKindRepost
}
