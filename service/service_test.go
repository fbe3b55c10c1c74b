package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"minigameshub-edge/backend"
	"minigameshub-edge/config"
)

const deadBackend = "http://127.0.0.1:1"

func testConfig(t *testing.T, backendURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		BackendURL:   backendURL,
		UserAgent:    "minigameshub-edge-test/1.0",
		DataDir:      dir,
		DatabasePath: filepath.Join(dir, "catalog.db"),
		QueueCap:     50,
		SyncInterval: time.Minute,
		APICacheTTL:  5 * time.Minute,
	}
}

func newTestService(t *testing.T, cfg config.Config) *Service {
	t.Helper()
	svc, err := New(cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// catalogBackend serves a minimal two-game catalog.
func catalogBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("published") != "1" {
			t.Error("games fetch missing published filter")
		}
		io.WriteString(w, `[
			{"game_id":1,"name":"Sky Racer","category":"1","plays":"100","rating":4.5,"published":1,"featured":"1","date_added":"2024-01-10"},
			{"game_id":2,"game_name":"Block Drop","category":1,"plays":10,"rating":"4.8","published":"1","date_added":"2024-03-01"}
		]`)
	})
	mux.HandleFunc("GET /api/categories", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"name":"Action"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestInitLoadsRemoteCatalog(t *testing.T) {
	srv := catalogBackend(t)
	svc := newTestService(t, testConfig(t, srv.URL))

	if err := svc.Init(t.Context()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	games := svc.Cache().Games()
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	g, ok := svc.Cache().GameBySlug("sky-racer")
	if !ok || g.ID != 1 {
		t.Fatalf("GameBySlug(sky-racer) = %v, %v", g, ok)
	}
	if g.CategoryName != "Action" {
		t.Errorf("CategoryName = %q, want %q", g.CategoryName, "Action")
	}
}

func TestInitFallsBackToSnapshot(t *testing.T) {
	srv := catalogBackend(t)
	cfg := testConfig(t, srv.URL)

	svc := newTestService(t, cfg)
	if err := svc.Init(t.Context()); err != nil {
		t.Fatalf("online Init: %v", err)
	}
	svc.Close()

	// Same database, unreachable remote: the persisted snapshot serves.
	cfg.BackendURL = deadBackend
	offline := newTestService(t, cfg)
	if err := offline.Init(t.Context()); err != nil {
		t.Fatalf("offline Init: %v", err)
	}
	if got := len(offline.Cache().Games()); got != 2 {
		t.Errorf("snapshot catalog has %d games, want 2", got)
	}
}

func TestInitWithoutSnapshotStartsEmpty(t *testing.T) {
	svc := newTestService(t, testConfig(t, deadBackend))

	if err := svc.Init(t.Context()); err != nil {
		t.Fatalf("Init should tolerate a cold offline start, got %v", err)
	}
	if got := len(svc.Cache().Games()); got != 0 {
		t.Errorf("expected empty catalog, got %d games", got)
	}
}

func TestRecordPlayForwardsWhenOnline(t *testing.T) {
	var plays atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games/1/plays", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["amount"] != 1 {
			t.Errorf("bad play increment body: %v %v", body, err)
		}
		plays.Add(1)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := newTestService(t, testConfig(t, srv.URL))
	svc.RecordPlay(t.Context(), 1)

	if plays.Load() != 1 {
		t.Errorf("remote saw %d play increments, want 1", plays.Load())
	}
	if n, err := svc.Queue().Len(); err != nil || n != 0 {
		t.Errorf("queue length = %d (%v), want 0", n, err)
	}
}

func TestRecordPlayQueuesWhenOffline(t *testing.T) {
	svc := newTestService(t, testConfig(t, deadBackend))

	svc.RecordPlay(t.Context(), 7)
	svc.RecordPlay(t.Context(), 7)

	pending, err := svc.Queue().Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("queued %d mutations, want 2", len(pending))
	}
	if pending[0].Kind != backend.KindPlayIncrement || pending[0].TargetID != 7 {
		t.Errorf("queued mutation = %+v", pending[0])
	}
}

func TestRecordPlayDropsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such game"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	svc := newTestService(t, testConfig(t, srv.URL))
	svc.RecordPlay(t.Context(), 999)

	if n, _ := svc.Queue().Len(); n != 0 {
		t.Errorf("rejected mutation was queued, queue length %d", n)
	}
}

func TestRecordRatingClampsAndForwards(t *testing.T) {
	var got atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/games/3", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode rating body: %v", err)
		}
		got.Store(body["rating"])
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := newTestService(t, testConfig(t, srv.URL))
	svc.RecordRating(t.Context(), 3, 9.5)

	if v, _ := got.Load().(float64); v != 5 {
		t.Errorf("remote saw rating %v, want clamped 5", v)
	}
}

func TestRecordPlayUpdatesLocalCatalogOptimistically(t *testing.T) {
	srv := catalogBackend(t)
	cfg := testConfig(t, srv.URL)
	svc := newTestService(t, cfg)
	if err := svc.Init(t.Context()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	before, _ := svc.Cache().GameByID(1)
	svc.RecordPlay(t.Context(), 1)
	after, _ := svc.Cache().GameByID(1)

	if after.Plays != before.Plays+1 {
		t.Errorf("local plays %d -> %d, want +1", before.Plays, after.Plays)
	}
}
