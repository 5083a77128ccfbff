package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse/cmd/internal/notify"
)

// memCatalogStore is an in-memory Store for service tests.
type memCatalogStore struct {
	mu        sync.Mutex
	artists   map[string]Artist
	albums    map[string]Album
	covers    map[string]Cover
	regionals map[int64]Regional
}

func newMemCatalogStore() *memCatalogStore {
	return &memCatalogStore{
		artists:   make(map[string]Artist),
		albums:    make(map[string]Album),
		covers:    make(map[string]Cover),
		regionals: make(map[int64]Regional),
	}
}

func (m *memCatalogStore) CreateArtist(_ context.Context, a Artist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artists[a.ID] = a
	return nil
}

func (m *memCatalogStore) GetArtist(_ context.Context, id string) (Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artists[id]
	if !ok {
		return Artist{}, ErrNotFound
	}
	return a, nil
}

func (m *memCatalogStore) ListArtists(_ context.Context, _ string, pr PageRequest) ([]Artist, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Artist, 0, len(m.artists))
	for _, a := range m.artists {
		all = append(all, a)
	}
	total := int64(len(all))
	lo := pr.Offset()
	if lo > len(all) {
		return nil, total, nil
	}
	hi := lo + pr.Size
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (m *memCatalogStore) UpdateArtist(_ context.Context, a Artist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artists[a.ID]; !ok {
		return ErrNotFound
	}
	m.artists[a.ID] = a
	return nil
}

func (m *memCatalogStore) DeleteArtist(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artists[id]; !ok {
		return ErrNotFound
	}
	delete(m.artists, id)
	return nil
}

func (m *memCatalogStore) CreateAlbum(_ context.Context, al Album) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums[al.ID] = al
	return nil
}

func (m *memCatalogStore) GetAlbum(_ context.Context, id string) (Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	al, ok := m.albums[id]
	if !ok {
		return Album{}, ErrNotFound
	}
	return al, nil
}

func (m *memCatalogStore) ListAlbums(_ context.Context, artistID string, pr PageRequest) ([]Album, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Album
	for _, al := range m.albums {
		if artistID == "" {
			all = append(all, al)
			continue
		}
		for _, id := range al.ArtistIDs {
			if id == artistID {
				all = append(all, al)
				break
			}
		}
	}
	total := int64(len(all))
	lo := pr.Offset()
	if lo > len(all) {
		return nil, total, nil
	}
	hi := lo + pr.Size
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (m *memCatalogStore) UpdateAlbum(_ context.Context, al Album) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.albums[al.ID]; !ok {
		return ErrNotFound
	}
	m.albums[al.ID] = al
	return nil
}

func (m *memCatalogStore) DeleteAlbum(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.albums[id]; !ok {
		return ErrNotFound
	}
	delete(m.albums, id)
	return nil
}

func (m *memCatalogStore) CreateCover(_ context.Context, c Cover) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.covers[c.ID] = c
	return nil
}

func (m *memCatalogStore) GetCover(_ context.Context, id string) (Cover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.covers[id]
	if !ok {
		return Cover{}, ErrNotFound
	}
	return c, nil
}

func (m *memCatalogStore) ListCoversByAlbum(_ context.Context, albumID string) ([]Cover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Cover
	for _, c := range m.covers {
		if c.AlbumID == albumID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCatalogStore) DeleteCover(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.covers[id]; !ok {
		return ErrNotFound
	}
	delete(m.covers, id)
	return nil
}

func (m *memCatalogStore) UpsertRegionals(_ context.Context, rs []Regional) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int64]bool, len(rs))
	for _, r := range rs {
		m.regionals[r.ID] = r
		seen[r.ID] = true
	}
	var deactivated int64
	for id, r := range m.regionals {
		if !seen[id] && r.Active {
			r.Active = false
			m.regionals[id] = r
			deactivated++
		}
	}
	return deactivated, nil
}

func (m *memCatalogStore) ListRegionals(_ context.Context, activeOnly bool) ([]Regional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Regional
	for _, r := range m.regionals {
		if !activeOnly || r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

// recordingNotifier captures broadcast events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Broadcast(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

func newTestCatalog(t *testing.T) (*Service, *memCatalogStore, *recordingNotifier) {
	t.Helper()
	store := newMemCatalogStore()
	notifier := &recordingNotifier{}
	return NewService(store, notifier, slog.New(slog.DiscardHandler)), store, notifier
}

func TestArtistLifecycle(t *testing.T) {
	svc, _, notifier := newTestCatalog(t)
	ctx := context.Background()

	artist, err := svc.CreateArtist(ctx, "curator", "Miles Davis", false)
	require.NoError(t, err)
	require.NotEmpty(t, artist.ID)
	assert.False(t, artist.IsBand)

	updated, err := svc.UpdateArtist(ctx, "curator", artist.ID, "Miles Davis Quintet", true)
	require.NoError(t, err)
	assert.Equal(t, artist.ID, updated.ID)
	assert.True(t, updated.IsBand)

	require.NoError(t, svc.DeleteArtist(ctx, "curator", artist.ID))
	_, err = svc.GetArtist(ctx, artist.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		notify.EventArtistCreated,
		notify.EventArtistUpdated,
		notify.EventArtistDeleted,
	}, notifier.types())
	for _, ev := range notifier.events {
		assert.Equal(t, "curator", ev.Username)
	}
}

func TestCreateArtist_Validation(t *testing.T) {
	svc, _, _ := newTestCatalog(t)

	_, err := svc.CreateArtist(context.Background(), "curator", "", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAlbumValidation(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	artist, err := svc.CreateArtist(ctx, "curator", "Kind of Blue Band", true)
	require.NoError(t, err)

	cases := []struct {
		name    string
		title   string
		year    int
		artists []string
		wantErr error
	}{
		{"missing title", "", 1959, []string{artist.ID}, ErrInvalidInput},
		{"year too small", "Kind of Blue", 5, []string{artist.ID}, ErrInvalidInput},
		{"year in far future", "Kind of Blue", 3000, []string{artist.ID}, ErrInvalidInput},
		{"no artists", "Kind of Blue", 1959, nil, ErrInvalidInput},
		{"unknown artist", "Kind of Blue", 1959, []string{"ghost"}, ErrNotFound},
	}
	for _, tc := range cases {
		_, err := svc.CreateAlbum(ctx, "curator", tc.title, tc.year, tc.artists)
		assert.ErrorIs(t, err, tc.wantErr, tc.name)
	}

	album, err := svc.CreateAlbum(ctx, "curator", "Kind of Blue", 1959, []string{artist.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{artist.ID}, album.ArtistIDs)
}

func TestListArtists_PageEnvelope(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.CreateArtist(ctx, "curator", fmt.Sprintf("artist-%d", i), false)
		require.NoError(t, err)
	}

	page, err := svc.ListArtists(ctx, "", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Content, 3)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 3, page.Size)

	// Last page is partial.
	last, err := svc.ListArtists(ctx, "", 2, 3)
	require.NoError(t, err)
	assert.Len(t, last.Content, 1)

	// Past the end: empty content, same totals.
	beyond, err := svc.ListArtists(ctx, "", 9, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Content)
	assert.NotNil(t, beyond.Content)
	assert.Equal(t, int64(7), beyond.TotalElements)
}

func TestNormalizePageRequest(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 0, Size: 20}, NormalizePageRequest(-4, 0))
	assert.Equal(t, PageRequest{Page: 2, Size: 100}, NormalizePageRequest(2, 5000))
	assert.Equal(t, 40, PageRequest{Page: 2, Size: 20}.Offset())
}
