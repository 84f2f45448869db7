// Package model defines the data structures shared across the application
// layers. Structs here carry no behavior beyond small convenience helpers;
// validation and policy live in the sanitize and service packages.
package model

import "time"

// Visibility controls who may read a snippet's content.
type Visibility string

const (
	// VisibilityPublic snippets are readable by anyone.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate snippets require the owner or the access secret.
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the two known visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// CodeFile is one entry of a snippet's file sequence. Identity of an entry is
// positional; files carry no per-file ID across edits.
type CodeFile struct {
	Filename string `json:"filename"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Snippet is the persisted bundle of title, files, description, tags, and
// privacy/expiry metadata.
//
// SecretHash is never serialized to JSON. A private snippet always has a
// non-empty SecretHash; a public snippet never has one. ExpiresAt, when set,
// makes the snippet behave as absent once it passes — the record itself is
// not deleted.
type Snippet struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId,omitempty"`
	Title       string     `json:"title"`
	Files       []CodeFile `json:"files,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	Visibility  Visibility `json:"visibility"`
	SecretHash  string     `json:"-"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitzero"`
	UpdatedAt   time.Time  `json:"updatedAt,omitzero"`
}

// PublicSummary is the projection returned by public listings. It never
// includes file contents or the secret hash.
type PublicSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	FileCount int       `json:"fileCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnedSummary is the projection returned when an owner lists their own
// snippets, regardless of visibility.
type OwnedSummary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Visibility Visibility `json:"visibility"`
	FileCount  int        `json:"fileCount"`
	CreatedAt  time.Time  `json:"createdAt"`
}
