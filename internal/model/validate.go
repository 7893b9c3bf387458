package model

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sakif/inkwell/internal/apperror"
)

const (
	MaxTitleLength = 300
	MaxNameLength  = 100
	MaxBioLength   = 2000
)

// Validate checks a create payload. Every failing field is reported, not
// just the first, so a form can highlight all of them at once.
func (b InsertBlog) Validate() error {
	var errs []apperror.FieldError

	errs = append(errs, checkTitle(b.Title)...)
	if strings.TrimSpace(b.Content) == "" {
		errs = append(errs, apperror.FieldError{Field: "content", Message: "content is required"})
	}
	errs = append(errs, checkTags(b.Tags)...)
	errs = append(errs, checkImageURL("featuredImage", b.FeaturedImage)...)
	errs = append(errs, checkReadTime(b.ReadTime)...)

	if len(errs) > 0 {
		return apperror.Validation("Invalid blog data", errs...)
	}
	return nil
}

// Validate checks a partial update. Only present fields are checked, but a
// present title or content must still be non-blank.
func (u UpdateBlog) Validate() error {
	var errs []apperror.FieldError

	if u.Title != nil {
		errs = append(errs, checkTitle(*u.Title)...)
	}
	if u.Content != nil && strings.TrimSpace(*u.Content) == "" {
		errs = append(errs, apperror.FieldError{Field: "content", Message: "content cannot be empty"})
	}
	if u.Tags != nil {
		errs = append(errs, checkTags(*u.Tags)...)
	}
	errs = append(errs, checkImageURL("featuredImage", u.FeaturedImage)...)
	errs = append(errs, checkReadTime(u.ReadTime)...)

	if len(errs) > 0 {
		return apperror.Validation("Invalid blog data", errs...)
	}
	return nil
}

// Validate checks a profile update.
func (p UserPatch) Validate() error {
	var errs []apperror.FieldError

	if p.FirstName != nil && utf8.RuneCountInString(*p.FirstName) > MaxNameLength {
		errs = append(errs, apperror.FieldError{Field: "firstName",
			Message: fmt.Sprintf("first name must be %d characters or less", MaxNameLength)})
	}
	if p.LastName != nil && utf8.RuneCountInString(*p.LastName) > MaxNameLength {
		errs = append(errs, apperror.FieldError{Field: "lastName",
			Message: fmt.Sprintf("last name must be %d characters or less", MaxNameLength)})
	}
	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > MaxBioLength {
		errs = append(errs, apperror.FieldError{Field: "bio",
			Message: fmt.Sprintf("bio must be %d characters or less", MaxBioLength)})
	}
	errs = append(errs, checkImageURL("profileImageUrl", p.ProfileImageURL)...)

	if len(errs) > 0 {
		return apperror.Validation("Invalid user data", errs...)
	}
	return nil
}

func checkTitle(title string) []apperror.FieldError {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return []apperror.FieldError{{Field: "title", Message: "title is required"}}
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return []apperror.FieldError{{Field: "title",
			Message: fmt.Sprintf("title must be %d characters or less", MaxTitleLength)}}
	}
	return nil
}

func checkTags(tags []string) []apperror.FieldError {
	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return []apperror.FieldError{{Field: fmt.Sprintf("tags[%d]", i), Message: "tags must be non-empty strings"}}
		}
	}
	return nil
}

func checkReadTime(readTime *int) []apperror.FieldError {
	if readTime != nil && *readTime < 1 {
		return []apperror.FieldError{{Field: "readTime", Message: "read time must be at least 1 minute"}}
	}
	return nil
}

// checkImageURL accepts nil and "" (no image) or an absolute http(s) URL.
func checkImageURL(field string, raw *string) []apperror.FieldError {
	if raw == nil || *raw == "" {
		return nil
	}
	u, err := url.ParseRequestURI(*raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []apperror.FieldError{{Field: field, Message: "must be an http or https URL"}}
	}
	return nil
}
