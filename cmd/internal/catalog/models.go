// Package catalog implements the music catalog: artists, albums, album
// covers, and the regionals directory synced from an external service.
package catalog

import (
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing catalog record.
	ErrNotFound = errors.New("catalog: record not found")

	// ErrInvalidInput reports a request that fails validation.
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// Artist is a performer or band.
type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsBand    bool      `json:"isBand"`
	CreatedAt time.Time `json:"createdAt"`
}

// Album belongs to one or more artists.
type Album struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ReleaseYear int       `json:"releaseYear"`
	ArtistIDs   []string  `json:"artistIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Cover is a stored album cover image. Key addresses the blob in object
// storage; the blob itself never passes through the database.
type Cover struct {
	ID          string    `json:"id"`
	AlbumID     string    `json:"albumId"`
	Key         string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Regional is a directory entry mirrored from the external regionals service.
// ID is assigned by the upstream system.
type Regional struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage assembles the envelope, computing TotalPages from the total count.
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// PageRequest is a normalized page/size pair.
type PageRequest struct {
	Page int
	Size int
}

// NormalizePageRequest clamps page/size to sane bounds.
func NormalizePageRequest(page, size int) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return PageRequest{Page: page, Size: size}
}

// Offset returns the row offset for the request.
func (p PageRequest) Offset() int { return p.Page * p.Size }
