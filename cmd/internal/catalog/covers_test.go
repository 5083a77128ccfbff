package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBlobStore struct {
	objects   map[string][]byte
	putErr    error
	presigned string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte), presigned: "https://blobs.example/signed"}
}

func (m *memBlobStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memBlobStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return m.presigned, nil
}

func newTestCovers(t *testing.T) (*CoverService, *memCatalogStore, *memBlobStore, Album) {
	t.Helper()
	store := newMemCatalogStore()
	blobs := newMemBlobStore()
	svc := NewCoverService(store, blobs, &recordingNotifier{}, slog.New(slog.DiscardHandler))

	album := Album{ID: "01ALBUM", Title: "Kind of Blue", ReleaseYear: 1959, CreatedAt: time.Now()}
	require.NoError(t, store.CreateAlbum(context.Background(), album))
	return svc, store, blobs, album
}

func TestUploadCover(t *testing.T) {
	svc, store, blobs, album := newTestCovers(t)
	ctx := context.Background()

	body := bytes.NewReader([]byte("jpeg bytes"))
	cover, err := svc.Upload(ctx, "curator", album.ID, "front.jpg", "image/jpeg", body, 10)
	require.NoError(t, err)

	assert.Equal(t, album.ID, cover.AlbumID)
	assert.True(t, strings.HasPrefix(cover.Key, "covers/"+album.ID+"/"))
	assert.Contains(t, blobs.objects, cover.Key)

	stored, err := store.GetCover(ctx, cover.ID)
	require.NoError(t, err)
	assert.Equal(t, cover.Key, stored.Key)

	url, err := svc.DownloadURL(ctx, cover.ID)
	require.NoError(t, err)
	assert.Equal(t, blobs.presigned, url)
}

func TestUploadCover_Rejections(t *testing.T) {
	svc, _, _, album := newTestCovers(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "curator", album.ID, "a.pdf", "application/pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidInput, "content type")

	_, err = svc.Upload(ctx, "curator", album.ID, "a.jpg", "image/jpeg", strings.NewReader("x"), MaxCoverBytes+1)
	assert.ErrorIs(t, err, ErrInvalidInput, "size")

	_, err = svc.Upload(ctx, "curator", "no-such-album", "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrNotFound, "album")
}

func TestUploadCover_BlobCleanupOnRowFailure(t *testing.T) {
	store := newMemCatalogStore()
	blobs := newMemBlobStore()
	failing := &failingCoverStore{Store: store, err: errors.New("insert failed")}
	svc := NewCoverService(failing, blobs, nil, slog.New(slog.DiscardHandler))

	album := Album{ID: "01ALBUM", Title: "x", ReleaseYear: 2000, CreatedAt: time.Now()}
	require.NoError(t, store.CreateAlbum(context.Background(), album))

	_, err := svc.Upload(context.Background(), "curator", album.ID, "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.Empty(t, blobs.objects, "blob must be cleaned up when the metadata insert fails")
}

type failingCoverStore struct {
	Store
	err error
}

func (f *failingCoverStore) CreateCover(context.Context, Cover) error { return f.err }

func TestDeleteCover(t *testing.T) {
	svc, store, blobs, album := newTestCovers(t)
	ctx := context.Background()

	cover, err := svc.Upload(ctx, "curator", album.ID, "front.jpg", "image/jpeg", strings.NewReader("x"), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "curator", cover.ID))
	assert.Empty(t, blobs.objects)
	_, err = store.GetCover(ctx, cover.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "curator", cover.ID), ErrNotFound)
}
