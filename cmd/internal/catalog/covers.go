package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"muse/cmd/internal/notify"
	"muse/cmd/internal/objstore"
)

// MaxCoverBytes caps cover uploads.
const MaxCoverBytes = 5 << 20

// DefaultCoverURLTTL bounds how long a presigned download link stays valid.
const DefaultCoverURLTTL = 15 * time.Minute

var allowedCoverTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// BlobStore is the object-storage slice the cover service needs.
// objstore.Store satisfies it.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CoverService manages album cover blobs and their metadata rows.
type CoverService struct {
	store    Store
	blobs    BlobStore
	notifier Notifier
	log      *slog.Logger
}

// NewCoverService constructs a CoverService. notifier may be nil.
func NewCoverService(store Store, blobs BlobStore, notifier Notifier, log *slog.Logger) *CoverService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CoverService{store: store, blobs: blobs, notifier: notifier, log: log}
}

// Upload validates and stores a cover image for an album: blob first, then
// the metadata row. If the row insert fails the blob is deleted best effort.
func (s *CoverService) Upload(ctx context.Context, actor, albumID, filename, contentType string, body io.Reader, size int64) (Cover, error) {
	if !allowedCoverTypes[contentType] {
		return Cover{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, contentType)
	}
	if size <= 0 || size > MaxCoverBytes {
		return Cover{}, fmt.Errorf("%w: cover size must be within 1..%d bytes", ErrInvalidInput, MaxCoverBytes)
	}
	if _, err := s.store.GetAlbum(ctx, albumID); err != nil {
		return Cover{}, err
	}

	key := objstore.CoverKey(albumID, filename)
	if err := s.blobs.Put(ctx, key, contentType, body, size); err != nil {
		return Cover{}, fmt.Errorf("store cover blob: %w", err)
	}

	c := Cover{
		ID:          ulid.Make().String(),
		AlbumID:     albumID,
		Key:         key,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateCover(ctx, c); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warn("covers.orphan_blob", "key", key, "error", delErr)
		}
		return Cover{}, err
	}

	s.log.Info("covers.uploaded", "cover_id", c.ID, "album_id", albumID, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventCoverUploaded, "Cover uploaded for album", c, actor))
	return c, nil
}

// List returns all covers of an album, newest first.
func (s *CoverService) List(ctx context.Context, albumID string) ([]Cover, error) {
	if _, err := s.store.GetAlbum(ctx, albumID); err != nil {
		return nil, err
	}
	return s.store.ListCoversByAlbum(ctx, albumID)
}

// DownloadURL returns a presigned, time-limited URL for a cover blob.
func (s *CoverService) DownloadURL(ctx context.Context, coverID string) (string, error) {
	c, err := s.store.GetCover(ctx, coverID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, c.Key, DefaultCoverURLTTL)
}

// Delete removes the metadata row, then the blob best effort: a dangling
// object is preferable to a row pointing at nothing.
func (s *CoverService) Delete(ctx context.Context, actor, coverID string) error {
	c, err := s.store.GetCover(ctx, coverID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCover(ctx, coverID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, c.Key); err != nil {
		s.log.Warn("covers.orphan_blob", "key", c.Key, "error", err)
	}
	s.log.Info("covers.deleted", "cover_id", coverID, "actor", actor)
	return nil
}
