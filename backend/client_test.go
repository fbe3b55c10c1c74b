package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"minigameshub-edge/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.Config{
		BackendURL: srv.URL,
		UserAgent:  "minigameshub-edge/test",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestFetchCatalogNormalization(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Mixed historical field shapes: game_name only, string numerics,
		// string flags.
		w.Write([]byte(`[
			{"game_id": 1, "name": "Sky Racer", "category": 2, "plays": 100, "rating": 4.5, "published": "1", "featured": 1, "mobile": "1", "w": 960, "h": 640, "date_added": "2025-03-01T12:00:00Z"},
			{"game_id": 2, "game_name": "Block Drop", "category": "3", "plays": "250", "rating": "9.9", "published": true, "featured": "0", "mobile": 0}
		]`))
	})
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 2, "name": "Racing Games"}, {"id": 3, "name": "Puzzle"}]`))
	})

	client := testClient(t, mux)
	games, categories, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog failed: %v", err)
	}

	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}

	g := games[0]
	if g.Name != "Sky Racer" || g.Slug != "sky-racer" {
		t.Errorf("game 1 name/slug = %q/%q", g.Name, g.Slug)
	}
	if !g.Published || !g.Featured || !g.Mobile {
		t.Errorf("game 1 flags = published=%v featured=%v mobile=%v", g.Published, g.Featured, g.Mobile)
	}
	if g.Width != 960 || g.Height != 640 {
		t.Errorf("game 1 dimensions = %dx%d", g.Width, g.Height)
	}
	if g.DateAdded.IsZero() {
		t.Error("game 1 date_added not parsed")
	}

	g = games[1]
	if g.Name != "Block Drop" {
		t.Errorf("game_name fallback failed: %q", g.Name)
	}
	if g.Category != 3 || g.Plays != 250 {
		t.Errorf("string numerics not normalized: category=%d plays=%d", g.Category, g.Plays)
	}
	if g.Rating != 5 {
		t.Errorf("rating not clamped: %v", g.Rating)
	}
	if g.Featured || g.Mobile {
		t.Errorf("string \"0\" flags decoded as true")
	}
	if g.Width != 800 || g.Height != 600 {
		t.Errorf("missing dimensions should default to 800x600, got %dx%d", g.Width, g.Height)
	}

	if len(categories) != 2 || categories[0].Slug != "racing-games" {
		t.Errorf("categories not normalized: %+v", categories)
	}
}

func TestFetchCatalogUnavailable(t *testing.T) {
	t.Run("5xx", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		_, _, err := client.FetchCatalog(context.Background())
		if !errors.Is(err, ErrRemoteUnavailable) {
			t.Errorf("got %v, want ErrRemoteUnavailable", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		client, err := NewClient(config.Config{
			BackendURL: "http://127.0.0.1:1",
			UserAgent:  "minigameshub-edge/test",
		})
		if err != nil {
			t.Fatal(err)
		}
		_, _, err = client.FetchCatalog(context.Background())
		if !errors.Is(err, ErrRemoteUnavailable) {
			t.Errorf("got %v, want ErrRemoteUnavailable", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		}))
		_, _, err := client.FetchCatalog(context.Background())
		if !errors.Is(err, ErrRemoteUnavailable) {
			t.Errorf("got %v, want ErrRemoteUnavailable", err)
		}
	})
}

func TestApplyMutationClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"success", http.StatusOK, nil},
		{"created", http.StatusNoContent, nil},
		{"validation failure", http.StatusUnprocessableEntity, ErrRejected},
		{"not found", http.StatusNotFound, ErrRejected},
		{"server error", http.StatusInternalServerError, ErrRetryable},
		{"gateway timeout", http.StatusGatewayTimeout, ErrRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			err := client.ApplyMutation(context.Background(), Mutation{
				Kind: KindPlayIncrement, TargetID: 1, Amount: 1,
			})
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("got %v, want nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("network failure is retryable", func(t *testing.T) {
		client, err := NewClient(config.Config{
			BackendURL: "http://127.0.0.1:1",
			UserAgent:  "minigameshub-edge/test",
		})
		if err != nil {
			t.Fatal(err)
		}
		err = client.ApplyMutation(context.Background(), Mutation{
			Kind: KindPlayIncrement, TargetID: 1, Amount: 1,
		})
		if !errors.Is(err, ErrRetryable) {
			t.Errorf("got %v, want ErrRetryable", err)
		}
	})
}

func TestApplyMutationLocalValidation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("invalid mutations must not reach the store")
	}))

	tests := []struct {
		name string
		m    Mutation
	}{
		{"zero play increment", Mutation{Kind: KindPlayIncrement, TargetID: 1}},
		{"negative rating", Mutation{Kind: KindRatingUpdate, TargetID: 1, Value: -1}},
		{"rating above five", Mutation{Kind: KindRatingUpdate, TargetID: 1, Value: 5.1}},
		{"unknown kind", Mutation{Kind: "favorite_toggle", TargetID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.ApplyMutation(context.Background(), tt.m); !errors.Is(err, ErrRejected) {
				t.Errorf("got %v, want ErrRejected", err)
			}
		})
	}
}
