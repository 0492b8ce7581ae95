package mediasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/model"
)

// Service provides CRUD for Media Sources and Libraries, plus the
// sync orchestration that runs a Syncer and reconciles its draft
// items into the media_items table.
type Service struct {
	db       *pgxpool.Pool
	registry *Registry
	logger   *zap.Logger
}

// New creates a Service backed by the built-in local/jellyfin syncers.
func New(db *pgxpool.Pool, logger *zap.Logger) *Service {
	return &Service{db: db, registry: NewRegistry(), logger: logger}
}

// Registry exposes the syncer registry so callers can register
// additional kinds (e.g. an out-of-process plugin bridge).
func (s *Service) Registry() *Registry {
	return s.registry
}

// ListSources returns every Media Source.
func (s *Service) ListSources(ctx context.Context) ([]model.MediaSource, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, kind, connection_config, created_at, updated_at
		FROM media_sources
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list media sources: %w", err)
	}
	defer rows.Close()

	var sources []model.MediaSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// GetSource fetches a Media Source by id.
func (s *Service) GetSource(ctx context.Context, id int64) (model.MediaSource, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, kind, connection_config, created_at, updated_at
		FROM media_sources
		WHERE id = $1
	`, id)
	return scanSource(row)
}

// CreateSource inserts a new Media Source.
func (s *Service) CreateSource(ctx context.Context, src model.MediaSource) (model.MediaSource, error) {
	cfgJSON, err := json.Marshal(src.ConnectionConfig)
	if err != nil {
		return model.MediaSource{}, fmt.Errorf("marshal connection config: %w", err)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO media_sources (name, kind, connection_config)
		VALUES ($1, $2, $3)
		RETURNING id, name, kind, connection_config, created_at, updated_at
	`, src.Name, src.Kind, cfgJSON)
	return scanSource(row)
}

// DeleteSource removes a Media Source by id.
func (s *Service) DeleteSource(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM media_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media source %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Libraries returns every Library belonging to a Media Source.
func (s *Service) Libraries(ctx context.Context, mediaSourceID int64) ([]model.Library, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, media_source_id, name, path, created_at, updated_at
		FROM libraries
		WHERE media_source_id = $1
		ORDER BY id
	`, mediaSourceID)
	if err != nil {
		return nil, fmt.Errorf("list libraries for source %d: %w", mediaSourceID, err)
	}
	defer rows.Close()

	var libs []model.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

// CreateLibrary inserts a new Library under a Media Source.
func (s *Service) CreateLibrary(ctx context.Context, lib model.Library) (model.Library, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO libraries (media_source_id, name, path)
		VALUES ($1, $2, $3)
		RETURNING id, media_source_id, name, path, created_at, updated_at
	`, lib.MediaSourceID, lib.Name, lib.Path)
	return scanLibrary(row)
}

// SyncLibrary runs the Media Source's Syncer and reconciles the draft
// items it returns into media_items, keyed by path. It runs
// synchronously in the caller's goroutine (the HTTP sync handler calls
// it inline, so the request waits for the walk/poll) and never inside a
// build transaction, so a stalled walk/poll holds no lock the Build
// Driver needs.
func (s *Service) SyncLibrary(ctx context.Context, libraryID int64) (inserted, updated int, err error) {
	lib, err := s.getLibrary(ctx, libraryID)
	if err != nil {
		return 0, 0, err
	}
	src, err := s.GetSource(ctx, lib.MediaSourceID)
	if err != nil {
		return 0, 0, err
	}
	syncer, err := s.registry.For(src.Kind)
	if err != nil {
		return 0, 0, err
	}

	cfg := src.ConnectionConfig
	if lib.Path != "" {
		cfg.RootPath = lib.Path
	}
	drafts, err := syncer.Sync(ctx, cfg)
	if err != nil {
		return 0, 0, fmt.Errorf("sync library %d: %w", libraryID, err)
	}

	for _, d := range drafts {
		didInsert, err := s.upsertDraft(ctx, libraryID, d)
		if err != nil {
			s.logger.Warn("sync: failed to reconcile draft item",
				zap.Int64("library_id", libraryID), zap.String("path", d.Path), zap.Error(err))
			continue
		}
		if didInsert {
			inserted++
		} else {
			updated++
		}
	}
	s.logger.Info("library sync complete",
		zap.Int64("library_id", libraryID), zap.Int("inserted", inserted), zap.Int("updated", updated))
	return inserted, updated, nil
}

func (s *Service) upsertDraft(ctx context.Context, libraryID int64, d DraftItem) (inserted bool, err error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE media_items
		SET title = $3, year = $4, duration_ms = $5, state = $6, updated_at = now()
		WHERE library_id = $1 AND source_path = $2
	`, libraryID, d.Path, d.Title, d.Year, d.Duration.Milliseconds(), d.State)
	if err != nil {
		return false, fmt.Errorf("update draft item %q: %w", d.Path, err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO media_items (library_id, source_path, kind, title, sort_title, year, duration_ms, state)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
	`, libraryID, d.Path, d.Kind, d.Title, d.Year, d.Duration.Milliseconds(), d.State)
	if err != nil {
		return false, fmt.Errorf("insert draft item %q: %w", d.Path, err)
	}
	return true, nil
}

func (s *Service) getLibrary(ctx context.Context, id int64) (model.Library, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, media_source_id, name, path, created_at, updated_at
		FROM libraries
		WHERE id = $1
	`, id)
	return scanLibrary(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (model.MediaSource, error) {
	var src model.MediaSource
	var cfgJSON []byte
	err := row.Scan(&src.ID, &src.Name, &src.Kind, &cfgJSON, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MediaSource{}, ErrNotFound
		}
		return model.MediaSource{}, fmt.Errorf("scan media source: %w", err)
	}
	if len(cfgJSON) > 0 {
		if err := json.Unmarshal(cfgJSON, &src.ConnectionConfig); err != nil {
			return model.MediaSource{}, fmt.Errorf("unmarshal connection config: %w", err)
		}
	}
	return src, nil
}

func scanLibrary(row rowScanner) (model.Library, error) {
	var lib model.Library
	err := row.Scan(&lib.ID, &lib.MediaSourceID, &lib.Name, &lib.Path, &lib.CreatedAt, &lib.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Library{}, ErrLibraryNotFound
		}
		return model.Library{}, fmt.Errorf("scan library: %w", err)
	}
	return lib, nil
}
