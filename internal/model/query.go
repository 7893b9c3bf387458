package model

// Paging defaults shared by every list endpoint.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page selects a window of a newest-first list.
type Page struct {
	Page  int
	Limit int
}

// Normalize replaces out-of-range values with the defaults and caps Limit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset is the number of rows to skip. Call on a normalized Page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// BlogQuery filters the public blog feed. Empty Tag or Search means no filter.
type BlogQuery struct {
	Page
	Tag    string
	Search string
}
