// Package model defines the data structures used throughout the application.
//
// The JSON tags are the wire contract with the frontend: camelCase names,
// optional fields encoded as null rather than omitted. The db tags are
// read by sqlx in the Postgres repository.
package model

import "time"

// User represents an account created by the identity provider.
//
// ID is opaque to the application. It is minted from the provider name and
// the provider's subject, e.g. "github|1234567", so the same person logging
// in through two providers gets two accounts.
//
// WHY POINTERS?
// Every profile field is optional at the provider (GitHub users can hide
// their email, Google users may have no family name). A nil pointer encodes
// as JSON null and maps to SQL NULL, which keeps "unknown" distinct from "".
type User struct {
	ID              string    `json:"id"              db:"id"`
	Email           *string   `json:"email"           db:"email"`
	FirstName       *string   `json:"firstName"       db:"first_name"`
	LastName        *string   `json:"lastName"        db:"last_name"`
	ProfileImageURL *string   `json:"profileImageUrl" db:"profile_image_url"`
	Bio             *string   `json:"bio"             db:"bio"`
	CreatedAt       time.Time `json:"createdAt"       db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt"       db:"updated_at"`
}

// AnonymousAuthor is the placeholder author attached to a blog whose author
// row cannot be found. Timestamps are set to now so the JSON stays valid.
func AnonymousAuthor(now time.Time) User {
	return User{
		ID:        "",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UserPatch is a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	ProfileImageURL *string `json:"profileImageUrl"`
	Bio             *string `json:"bio"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.ProfileImageURL == nil && p.Bio == nil
}

// Apply copies the patch's present fields onto u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.ProfileImageURL != nil {
		u.ProfileImageURL = p.ProfileImageURL
	}
	if p.Bio != nil {
		u.Bio = p.Bio
	}
}
