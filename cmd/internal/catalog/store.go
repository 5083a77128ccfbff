package catalog

import "context"

// Store abstracts catalog persistence.
type Store interface {
	CreateArtist(ctx context.Context, a Artist) error
	GetArtist(ctx context.Context, id string) (Artist, error)
	// ListArtists filters by name substring when nameFilter is non-empty.
	ListArtists(ctx context.Context, nameFilter string, pr PageRequest) ([]Artist, int64, error)
	UpdateArtist(ctx context.Context, a Artist) error
	DeleteArtist(ctx context.Context, id string) error

	CreateAlbum(ctx context.Context, al Album) error
	GetAlbum(ctx context.Context, id string) (Album, error)
	// ListAlbums filters by owning artist when artistID is non-empty.
	ListAlbums(ctx context.Context, artistID string, pr PageRequest) ([]Album, int64, error)
	UpdateAlbum(ctx context.Context, al Album) error
	DeleteAlbum(ctx context.Context, id string) error

	CreateCover(ctx context.Context, c Cover) error
	GetCover(ctx context.Context, id string) (Cover, error)
	ListCoversByAlbum(ctx context.Context, albumID string) ([]Cover, error)
	DeleteCover(ctx context.Context, id string) error

	// UpsertRegionals replaces the regional rows named in rs and deactivates
	// every row absent from rs. Returns how many rows were deactivated.
	UpsertRegionals(ctx context.Context, rs []Regional) (deactivated int64, err error)
	ListRegionals(ctx context.Context, activeOnly bool) ([]Regional, error)
}
