package upstream

import (
	"log/slog"
	"time"

	"pulsewire.app/ingest/internal/model"
)

// Parse converts an envelope into domain posts. Parsing is lossy:
// individual posts that cannot be resolved are skipped and logged, the
// rest of the batch proceeds.
func Parse(envelope *Envelope) []model.Post {
	posts := make([]model.Post, 0, len(envelope.Posts))
	now := time.Now().UTC()

	for _, raw := range envelope.Posts {
		if raw.ID == "" {
			slog.Warn("skipping post without id", "account", envelope.Account)
			continue
		}

		post := model.Post{
			ID:        raw.ID,
			CreatedAt: ParseDate(raw.CreatedAt),
			FetchedAt: now,
		}

		if raw.Text != nil {
			post.Text = *raw.Text
		}

		if author, ok := envelope.Users[raw.AuthorID]; ok {
			post.AuthorHandle = author.Username
			post.AuthorName = author.Name
		}

		post.Reference = resolveReference(raw)
		post.Media = resolveMedia(raw.MediaKeys, envelope.Media)
		post.Quoted = resolveQuoted(raw)

		posts = append(posts, post)
	}

	return posts
}

// resolveReference picks at most one reference, preferring
// repost over quote over reply when the provider reports several.
func resolveReference(raw RawPost) *model.Reference {
	switch {
	case raw.RepostOfID != "":
		return &model.Reference{TargetID: raw.RepostOfID, Kind: model.ReferenceKindRepost}
	case raw.QuotedPostID != "":
		return &model.Reference{TargetID: raw.QuotedPostID, Kind: model.ReferenceKindQuote}
	case raw.InReplyToID != "":
		return &model.Reference{TargetID: raw.InReplyToID, Kind: model.ReferenceKindReply}
	default:
		return nil
	}
}

func resolveMedia(keys []string, media map[string]RawMedia) []model.Media {
	if len(keys) == 0 {
		return nil
	}

	result := make([]model.Media, 0, len(keys))
	for _, key := range keys {
		m, ok := media[key]
		if !ok {
			continue
		}
		result = append(result, model.Media{
			ID:         m.MediaKey,
			Type:       m.Type,
			URL:        m.URL,
			PreviewURL: m.PreviewURL,
			Width:      m.Width,
			Height:     m.Height,
			AltText:    m.AltText,
		})
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func resolveQuoted(raw RawPost) *model.QuotedContent {
	switch {
	case raw.QuotedText != "":
		return &model.QuotedContent{Text: raw.QuotedText, AuthorHandle: raw.QuotedAuthor}
	case raw.RepostText != "":
		return &model.QuotedContent{Text: raw.RepostText, AuthorHandle: raw.RepostAuthor}
	default:
		return nil
	}
}
