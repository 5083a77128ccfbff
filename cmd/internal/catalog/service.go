package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"muse/cmd/internal/notify"
)

// Notifier receives catalog change events. The hub satisfies it.
type Notifier interface {
	Broadcast(ev notify.Event)
}

// NopNotifier drops events.
type NopNotifier struct{}

func (NopNotifier) Broadcast(notify.Event) {}

// Service implements the catalog operations over a Store and broadcasts a
// change event after each successful write. Notification failures cannot
// happen here: delivery is fire-and-forget by design.
type Service struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
}

// NewService constructs a Service. notifier may be nil.
func NewService(store Store, notifier Notifier, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, notifier: notifier, log: log}
}

func (s *Service) CreateArtist(ctx context.Context, actor, name string, isBand bool) (Artist, error) {
	if name == "" {
		return Artist{}, fmt.Errorf("%w: artist name is required", ErrInvalidInput)
	}
	a := Artist{
		ID:        ulid.Make().String(),
		Name:      name,
		IsBand:    isBand,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateArtist(ctx, a); err != nil {
		return Artist{}, err
	}
	s.log.Info("catalog.artist_created", "artist_id", a.ID, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventArtistCreated, "Artist created: "+a.Name, a, actor))
	return a, nil
}

func (s *Service) GetArtist(ctx context.Context, id string) (Artist, error) {
	return s.store.GetArtist(ctx, id)
}

func (s *Service) ListArtists(ctx context.Context, nameFilter string, page, size int) (Page[Artist], error) {
	pr := NormalizePageRequest(page, size)
	items, total, err := s.store.ListArtists(ctx, nameFilter, pr)
	if err != nil {
		return Page[Artist]{}, err
	}
	return NewPage(items, pr.Page, pr.Size, total), nil
}

func (s *Service) UpdateArtist(ctx context.Context, actor, id, name string, isBand bool) (Artist, error) {
	if name == "" {
		return Artist{}, fmt.Errorf("%w: artist name is required", ErrInvalidInput)
	}
	a, err := s.store.GetArtist(ctx, id)
	if err != nil {
		return Artist{}, err
	}
	a.Name = name
	a.IsBand = isBand
	if err := s.store.UpdateArtist(ctx, a); err != nil {
		return Artist{}, err
	}
	s.log.Info("catalog.artist_updated", "artist_id", a.ID, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventArtistUpdated, "Artist updated: "+a.Name, a, actor))
	return a, nil
}

func (s *Service) DeleteArtist(ctx context.Context, actor, id string) error {
	if err := s.store.DeleteArtist(ctx, id); err != nil {
		return err
	}
	s.log.Info("catalog.artist_deleted", "artist_id", id, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventArtistDeleted, "Artist deleted", map[string]string{"id": id}, actor))
	return nil
}

func (s *Service) validateAlbum(ctx context.Context, title string, releaseYear int, artistIDs []string) error {
	if title == "" {
		return fmt.Errorf("%w: album title is required", ErrInvalidInput)
	}
	if releaseYear < 1000 || releaseYear > time.Now().Year()+1 {
		return fmt.Errorf("%w: release year %d out of range", ErrInvalidInput, releaseYear)
	}
	if len(artistIDs) == 0 {
		return fmt.Errorf("%w: an album needs at least one artist", ErrInvalidInput)
	}
	for _, id := range artistIDs {
		if _, err := s.store.GetArtist(ctx, id); err != nil {
			return fmt.Errorf("artist %s: %w", id, err)
		}
	}
	return nil
}

func (s *Service) CreateAlbum(ctx context.Context, actor, title string, releaseYear int, artistIDs []string) (Album, error) {
	if err := s.validateAlbum(ctx, title, releaseYear, artistIDs); err != nil {
		return Album{}, err
	}
	al := Album{
		ID:          ulid.Make().String(),
		Title:       title,
		ReleaseYear: releaseYear,
		ArtistIDs:   artistIDs,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateAlbum(ctx, al); err != nil {
		return Album{}, err
	}
	s.log.Info("catalog.album_created", "album_id", al.ID, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventAlbumCreated, "Album created: "+al.Title, al, actor))
	return al, nil
}

func (s *Service) GetAlbum(ctx context.Context, id string) (Album, error) {
	return s.store.GetAlbum(ctx, id)
}

func (s *Service) ListAlbums(ctx context.Context, artistID string, page, size int) (Page[Album], error) {
	pr := NormalizePageRequest(page, size)
	items, total, err := s.store.ListAlbums(ctx, artistID, pr)
	if err != nil {
		return Page[Album]{}, err
	}
	return NewPage(items, pr.Page, pr.Size, total), nil
}

func (s *Service) UpdateAlbum(ctx context.Context, actor, id, title string, releaseYear int, artistIDs []string) (Album, error) {
	if err := s.validateAlbum(ctx, title, releaseYear, artistIDs); err != nil {
		return Album{}, err
	}
	al, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		return Album{}, err
	}
	al.Title = title
	al.ReleaseYear = releaseYear
	al.ArtistIDs = artistIDs
	if err := s.store.UpdateAlbum(ctx, al); err != nil {
		return Album{}, err
	}
	s.log.Info("catalog.album_updated", "album_id", al.ID, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventAlbumUpdated, "Album updated: "+al.Title, al, actor))
	return al, nil
}

func (s *Service) DeleteAlbum(ctx context.Context, actor, id string) error {
	if err := s.store.DeleteAlbum(ctx, id); err != nil {
		return err
	}
	s.log.Info("catalog.album_deleted", "album_id", id, "actor", actor)
	s.notifier.Broadcast(notify.NewEvent(notify.EventAlbumDeleted, "Album deleted", map[string]string{"id": id}, actor))
	return nil
}

func (s *Service) ListRegionals(ctx context.Context, activeOnly bool) ([]Regional, error) {
	return s.store.ListRegionals(ctx, activeOnly)
}
