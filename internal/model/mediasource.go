package model

import "time"

// MediaSourceKind is the discriminator for external libraries that Media
// Items are synced from.
type MediaSourceKind string

const (
	MediaSourceKindLocal    MediaSourceKind = "local"
	MediaSourceKindJellyfin MediaSourceKind = "jellyfin"
)

// MediaSource describes one external source to mirror Media Items from.
type MediaSource struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Kind             MediaSourceKind `json:"kind"`
	ConnectionConfig ConnectionConfig `json:"connection_config"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ConnectionConfig is the JSON document stored in
// media_sources.connection_config. Only the fields relevant to Kind are
// populated.
type ConnectionConfig struct {
	// local
	RootPath string `json:"root_path,omitempty"`

	// jellyfin
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// Library is a named collection of items within a Media Source (e.g. a
// Jellyfin library, or a top-level directory of a local root).
type Library struct {
	ID            int64     `json:"id"`
	MediaSourceID int64     `json:"media_source_id"`
	Name          string    `json:"name"`
	Path          string    `json:"path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
