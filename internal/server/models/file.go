// Package models defines server-side data models persisted in the database
// or in the upload session store.
package models

import "time"

// File describes a stored file owned by a single account. The bytes
// themselves live in the blob store under StoragePath.
type File struct {
	ID string
	// Owner is the opaque account id taken from the access token.
	Owner string
	// OriginalName is the display name supplied by the uploader.
	OriginalName string
	// StoragePath is the system-generated blob key; it never derives from OriginalName.
	StoragePath string
	// Size is the number of bytes actually persisted.
	Size       int64
	UploadedAt time.Time

	// Share is nil unless the owner published a public link.
	Share *Share
}

// Share holds the public-link metadata of a file.
type Share struct {
	Token string
	// ExpiresAt is nil for links that never expire.
	ExpiresAt *time.Time
	// PasswordHash is a bcrypt hash, empty when the link has no password.
	PasswordHash string
}

// Expired reports whether the link is past its expiry at now.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Protected reports whether a password must be supplied.
func (s *Share) Protected() bool {
	return s.PasswordHash != ""
}
