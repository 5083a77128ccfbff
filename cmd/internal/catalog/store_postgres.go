package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the catalog in the muse schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateArtist(ctx context.Context, a Artist) error {
	const q = `
		INSERT INTO muse.artists (id, name, is_band, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.pool.Exec(ctx, q, a.ID, a.Name, a.IsBand, a.CreatedAt); err != nil {
		return fmt.Errorf("insert artist: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArtist(ctx context.Context, id string) (Artist, error) {
	const q = `SELECT id, name, is_band, created_at FROM muse.artists WHERE id = $1`
	var a Artist
	err := s.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Name, &a.IsBand, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Artist{}, ErrNotFound
	}
	if err != nil {
		return Artist{}, fmt.Errorf("select artist: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListArtists(ctx context.Context, nameFilter string, pr PageRequest) ([]Artist, int64, error) {
	const countQ = `SELECT count(*) FROM muse.artists WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`
	var total int64
	if err := s.pool.QueryRow(ctx, countQ, nameFilter).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count artists: %w", err)
	}

	const q = `
		SELECT id, name, is_band, created_at
		FROM muse.artists
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, q, nameFilter, pr.Size, pr.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("select artists: %w", err)
	}
	defer rows.Close()

	var out []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.IsBand, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan artist: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) UpdateArtist(ctx context.Context, a Artist) error {
	const q = `UPDATE muse.artists SET name = $2, is_band = $3 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, a.ID, a.Name, a.IsBand)
	if err != nil {
		return fmt.Errorf("update artist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteArtist(ctx context.Context, id string) error {
	const q = `DELETE FROM muse.artists WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateAlbum(ctx context.Context, al Album) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `
			INSERT INTO muse.albums (id, title, release_year, created_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, q, al.ID, al.Title, al.ReleaseYear, al.CreatedAt); err != nil {
			return fmt.Errorf("insert album: %w", err)
		}
		return linkArtists(ctx, tx, al.ID, al.ArtistIDs)
	})
}

func (s *PostgresStore) GetAlbum(ctx context.Context, id string) (Album, error) {
	const q = `SELECT id, title, release_year, created_at FROM muse.albums WHERE id = $1`
	var al Album
	err := s.pool.QueryRow(ctx, q, id).Scan(&al.ID, &al.Title, &al.ReleaseYear, &al.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Album{}, ErrNotFound
	}
	if err != nil {
		return Album{}, fmt.Errorf("select album: %w", err)
	}

	al.ArtistIDs, err = s.albumArtists(ctx, id)
	if err != nil {
		return Album{}, err
	}
	return al, nil
}

func (s *PostgresStore) albumArtists(ctx context.Context, albumID string) ([]string, error) {
	const q = `SELECT artist_id FROM muse.album_artists WHERE album_id = $1 ORDER BY artist_id`
	rows, err := s.pool.Query(ctx, q, albumID)
	if err != nil {
		return nil, fmt.Errorf("select album artists: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan album artist: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ListAlbums(ctx context.Context, artistID string, pr PageRequest) ([]Album, int64, error) {
	const countQ = `
		SELECT count(*)
		FROM muse.albums a
		WHERE $1 = '' OR EXISTS (
			SELECT 1 FROM muse.album_artists aa
			WHERE aa.album_id = a.id AND aa.artist_id = $1
		)
	`
	var total int64
	if err := s.pool.QueryRow(ctx, countQ, artistID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count albums: %w", err)
	}

	const q = `
		SELECT a.id, a.title, a.release_year, a.created_at
		FROM muse.albums a
		WHERE $1 = '' OR EXISTS (
			SELECT 1 FROM muse.album_artists aa
			WHERE aa.album_id = a.id AND aa.artist_id = $1
		)
		ORDER BY a.release_year DESC, a.title, a.id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, q, artistID, pr.Size, pr.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("select albums: %w", err)
	}
	defer rows.Close()

	var out []Album
	for rows.Next() {
		var al Album
		if err := rows.Scan(&al.ID, &al.Title, &al.ReleaseYear, &al.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan album: %w", err)
		}
		out = append(out, al)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		ids, err := s.albumArtists(ctx, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].ArtistIDs = ids
	}
	return out, total, nil
}

func (s *PostgresStore) UpdateAlbum(ctx context.Context, al Album) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `UPDATE muse.albums SET title = $2, release_year = $3 WHERE id = $1`
		tag, err := tx.Exec(ctx, q, al.ID, al.Title, al.ReleaseYear)
		if err != nil {
			return fmt.Errorf("update album: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM muse.album_artists WHERE album_id = $1`, al.ID); err != nil {
			return fmt.Errorf("clear album artists: %w", err)
		}
		return linkArtists(ctx, tx, al.ID, al.ArtistIDs)
	})
}

func linkArtists(ctx context.Context, tx pgx.Tx, albumID string, artistIDs []string) error {
	const q = `INSERT INTO muse.album_artists (album_id, artist_id) VALUES ($1, $2)`
	for _, artistID := range artistIDs {
		if _, err := tx.Exec(ctx, q, albumID, artistID); err != nil {
			return fmt.Errorf("link artist %s: %w", artistID, err)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteAlbum(ctx context.Context, id string) error {
	const q = `DELETE FROM muse.albums WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateCover(ctx context.Context, c Cover) error {
	const q = `
		INSERT INTO muse.album_covers (id, album_id, object_key, filename, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.pool.Exec(ctx, q, c.ID, c.AlbumID, c.Key, c.Filename, c.ContentType, c.SizeBytes, c.CreatedAt); err != nil {
		return fmt.Errorf("insert cover: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCover(ctx context.Context, id string) (Cover, error) {
	const q = `
		SELECT id, album_id, object_key, filename, content_type, size_bytes, created_at
		FROM muse.album_covers WHERE id = $1
	`
	var c Cover
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.AlbumID, &c.Key, &c.Filename, &c.ContentType, &c.SizeBytes, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cover{}, ErrNotFound
	}
	if err != nil {
		return Cover{}, fmt.Errorf("select cover: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCoversByAlbum(ctx context.Context, albumID string) ([]Cover, error) {
	const q = `
		SELECT id, album_id, object_key, filename, content_type, size_bytes, created_at
		FROM muse.album_covers WHERE album_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := s.pool.Query(ctx, q, albumID)
	if err != nil {
		return nil, fmt.Errorf("select covers: %w", err)
	}
	defer rows.Close()

	var out []Cover
	for rows.Next() {
		var c Cover
		if err := rows.Scan(&c.ID, &c.AlbumID, &c.Key, &c.Filename, &c.ContentType, &c.SizeBytes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cover: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteCover(ctx context.Context, id string) error {
	const q = `DELETE FROM muse.album_covers WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete cover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpsertRegionals(ctx context.Context, rs []Regional) (int64, error) {
	var deactivated int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const upsertQ = `
			INSERT INTO muse.regionals (id, name, active)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active
		`
		ids := make([]int64, 0, len(rs))
		for _, r := range rs {
			if _, err := tx.Exec(ctx, upsertQ, r.ID, r.Name, r.Active); err != nil {
				return fmt.Errorf("upsert regional %d: %w", r.ID, err)
			}
			ids = append(ids, r.ID)
		}

		const deactivateQ = `
			UPDATE muse.regionals SET active = false
			WHERE active AND NOT (id = ANY($1))
		`
		tag, err := tx.Exec(ctx, deactivateQ, ids)
		if err != nil {
			return fmt.Errorf("deactivate regionals: %w", err)
		}
		deactivated = tag.RowsAffected()
		return nil
	})
	return deactivated, err
}

func (s *PostgresStore) ListRegionals(ctx context.Context, activeOnly bool) ([]Regional, error) {
	const q = `
		SELECT id, name, active FROM muse.regionals
		WHERE NOT $1 OR active
		ORDER BY name, id
	`
	rows, err := s.pool.Query(ctx, q, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("select regionals: %w", err)
	}
	defer rows.Close()

	var out []Regional
	for rows.Next() {
		var r Regional
		if err := rows.Scan(&r.ID, &r.Name, &r.Active); err != nil {
			return nil, fmt.Errorf("scan regional: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
