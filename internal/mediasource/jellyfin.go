package mediasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fudoniten/pseudovision/internal/model"
)

// JellyfinSyncer polls a Jellyfin server's /Items REST endpoint for a
// user's library and maps each result into a DraftItem.
type JellyfinSyncer struct {
	client *http.Client
}

// NewJellyfinSyncer builds a JellyfinSyncer. A nil client gets a
// default with a bounded timeout, since a stalled poll must never
// block the sync request indefinitely.
func NewJellyfinSyncer(client *http.Client) *JellyfinSyncer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &JellyfinSyncer{client: client}
}

type jellyfinItemsResponse struct {
	Items []jellyfinItem `json:"Items"`
}

type jellyfinItem struct {
	ID               string `json:"Id"`
	Name             string `json:"Name"`
	Type             string `json:"Type"`
	ProductionYear   *int32 `json:"ProductionYear"`
	RunTimeTicks     int64  `json:"RunTimeTicks"`
}

// jellyfinTicksPerSecond is the number of 100-nanosecond ticks
// RunTimeTicks is expressed in.
const jellyfinTicksPerSecond = 10_000_000

func (s *JellyfinSyncer) Sync(ctx context.Context, cfg model.ConnectionConfig) ([]DraftItem, error) {
	if cfg.BaseURL == "" || cfg.UserID == "" {
		return nil, nil
	}

	endpoint, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse jellyfin base url: %w", err)
	}
	endpoint.Path = fmt.Sprintf("/Users/%s/Items", cfg.UserID)
	q := endpoint.Query()
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Movie,Episode,Audio")
	q.Set("Fields", "RunTimeTicks,ProductionYear")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build jellyfin request: %w", err)
	}
	if cfg.APIKey != "" {
		req.Header.Set("X-Emby-Token", cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jellyfin request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jellyfin request: unexpected status %d", resp.StatusCode)
	}

	var parsed jellyfinItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode jellyfin response: %w", err)
	}

	items := make([]DraftItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		kind := jellyfinKind(it.Type)
		if kind == "" {
			continue
		}
		state := model.MediaItemStateNormalized
		duration := time.Duration(it.RunTimeTicks/jellyfinTicksPerSecond) * time.Second
		if duration <= 0 {
			state = model.MediaItemStateUnavailable
		}
		items = append(items, DraftItem{
			Path:     it.ID,
			Kind:     kind,
			Title:    it.Name,
			Year:     it.ProductionYear,
			Duration: duration,
			State:    state,
		})
	}
	return items, nil
}

func jellyfinKind(itemType string) model.MediaKind {
	switch itemType {
	case "Movie":
		return model.MediaKindMovie
	case "Episode":
		return model.MediaKindEpisode
	case "Audio":
		return model.MediaKindSong
	default:
		return ""
	}
}
