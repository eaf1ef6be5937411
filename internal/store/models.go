package store

import "time"

type User struct {
	ID                string
	Email             string
	DisplayName       string
	PasswordHash      string
	Role              string
	EmailVerified     bool
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Workspace struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Space struct {
	ID          string
	WorkspaceID string
	Name        string
	Slug        string
	Description string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is the metadata row; body text and canvas live in the
// document's git repository, with a flattened search_text copy kept here
// for full-text search.
type Document struct {
	ID        string
	SpaceID   string
	Title     string
	Subtitle  string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommitInfo is one entry of a document's git history.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}

type Task struct {
	ID         string
	DocumentID string
	Title      string
	Status     string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
