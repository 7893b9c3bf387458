// Package derive computes the fields of a blog that are derived from its
// content: the excerpt and the estimated reading time.
//
// These are pure functions with no I/O. The service layer runs them on every
// create, and on every update that carries new content, before the payload
// reaches the repository.
package derive

import (
	"strings"
	"unicode/utf8"

	"github.com/sakif/inkwell/internal/model"
)

const (
	// ExcerptLength is the number of characters of content kept in an excerpt.
	ExcerptLength = 200
	// WordsPerMinute is the reading speed used for ReadTime.
	WordsPerMinute = 200
)

// Excerpt returns the first ExcerptLength characters of content followed by
// "...". The ellipsis is appended even when content is shorter than the limit.
//
// Content is cut on rune boundaries so multi-byte characters are never split.
func Excerpt(content string) string {
	if utf8.RuneCountInString(content) <= ExcerptLength {
		return content + "..."
	}
	n := 0
	for i := range content {
		if n == ExcerptLength {
			return content[:i] + "..."
		}
		n++
	}
	return content + "..."
}

// ReadTime estimates reading minutes as ceil(words / WordsPerMinute), with a
// floor of one minute. Words are whitespace-separated runs.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ApplyInsert fills the derived fields of a new blog. The excerpt is only
// generated when the client did not supply one; the read time is always
// recomputed from the content.
func ApplyInsert(b model.InsertBlog) model.InsertBlog {
	if b.Excerpt == nil || *b.Excerpt == "" {
		e := Excerpt(b.Content)
		b.Excerpt = &e
	}
	rt := ReadTime(b.Content)
	b.ReadTime = &rt
	return b
}

// ApplyUpdate fills derived fields on a partial update. Updates without new
// content are returned unchanged, including any client-supplied read time.
func ApplyUpdate(u model.UpdateBlog) model.UpdateBlog {
	if u.Content == nil {
		return u
	}
	if u.Excerpt == nil || *u.Excerpt == "" {
		e := Excerpt(*u.Content)
		u.Excerpt = &e
	}
	rt := ReadTime(*u.Content)
	u.ReadTime = &rt
	return u
}
