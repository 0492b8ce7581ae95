package mediasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fudoniten/pseudovision/internal/model"
)

func TestJellyfinSyncerSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != "test-key" {
			t.Errorf("missing or wrong X-Emby-Token header: %q", r.Header.Get("X-Emby-Token"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Items":[
			{"Id":"1","Name":"Movie One","Type":"Movie","ProductionYear":2020,"RunTimeTicks":72000000000},
			{"Id":"2","Name":"Unplayable","Type":"Movie","RunTimeTicks":0},
			{"Id":"3","Name":"Unsupported","Type":"Person"}
		]}`))
	}))
	defer srv.Close()

	syncer := NewJellyfinSyncer(srv.Client())
	drafts, err := syncer.Sync(context.Background(), model.ConnectionConfig{
		BaseURL: srv.URL,
		UserID:  "user-1",
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("got %d drafts, want 2", len(drafts))
	}

	if drafts[0].Title != "Movie One" || drafts[0].Duration.Seconds() != 7200 {
		t.Errorf("unexpected first draft: %+v", drafts[0])
	}
	if drafts[0].State != model.MediaItemStateNormalized {
		t.Errorf("first draft state = %v, want normalized", drafts[0].State)
	}
	if drafts[1].State != model.MediaItemStateUnavailable {
		t.Errorf("second draft state = %v, want unavailable (zero duration)", drafts[1].State)
	}
}

func TestJellyfinSyncerMissingConfig(t *testing.T) {
	syncer := NewJellyfinSyncer(nil)
	drafts, err := syncer.Sync(context.Background(), model.ConnectionConfig{})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if drafts != nil {
		t.Errorf("expected nil drafts for missing config, got %v", drafts)
	}
}
