package upstream

// RawPost is one post as the provider sends it, before parsing and
// validation. Date fields stay strings here: normalization only
// rewrites parseable values, unparseable ones pass through untouched.
type RawPost struct {
	ID            string   `json:"id"`
	Text          *string  `json:"text"`
	AuthorID      string   `json:"author_id"`
	CreatedAt     string   `json:"created_at"`
	RepostOfID    string   `json:"repost_of_id,omitempty"`
	QuotedPostID  string   `json:"quoted_post_id,omitempty"`
	InReplyToID   string   `json:"in_reply_to_id,omitempty"`
	MediaKeys     []string `json:"media_keys,omitempty"`
	QuotedText    string   `json:"quoted_text,omitempty"`
	QuotedAuthor  string   `json:"quoted_author,omitempty"`
	RepostText    string   `json:"repost_text,omitempty"`
	RepostAuthor  string   `json:"repost_author,omitempty"`
}

type RawUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

type RawMedia struct {
	MediaKey   string  `json:"media_key"`
	Type       string  `json:"type"`
	URL        string  `json:"url"`
	PreviewURL *string `json:"preview_url,omitempty"`
	Width      *int    `json:"width,omitempty"`
	Height     *int    `json:"height,omitempty"`
	AltText    *string `json:"alt_text,omitempty"`
}

// Envelope is the normalized fetch result: posts plus their includes
// keyed for O(1) lookup during parsing. Both provider response shapes
// (nested data.posts and top-level posts) collapse into this.
type Envelope struct {
	Account string
	Posts   []RawPost
	Users   map[string]RawUser
	Media   map[string]RawMedia
}

// apiResponse covers both response shapes the provider is known to
// return. Exactly one of Data or the top-level fields is populated.
type apiResponse struct {
	Data *struct {
		Posts    []RawPost `json:"posts"`
		Includes *struct {
			Users []RawUser  `json:"users"`
			Media []RawMedia `json:"media"`
		} `json:"includes"`
	} `json:"data"`
	Posts []RawPost  `json:"posts"`
	Users []RawUser  `json:"users"`
	Media []RawMedia `json:"media"`
}
