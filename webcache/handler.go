package webcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPITimeout = 3 * time.Second
	defaultAPITTL     = 5 * time.Minute
)

// PrecacheManifest lists the critical assets installed into every new static
// generation before it starts serving.
var PrecacheManifest = []string{
	"/",
	"/index.html",
	"/offline.html",
	"/manifest.json",
	"/assets/css/main.css",
	"/assets/js/main.js",
	"/assets/images/favicon.ico",
	"/data/gameData.json",
}

// Handler intercepts every request at the edge and answers it according to
// the strategy selected by Classify. Each request is handled by an
// independent goroutine; the only shared state is the generation store,
// whose entries are idempotent snapshots (concurrent writes to the same key
// resolve last-writer-wins).
type Handler struct {
	upstream *url.URL
	client   *http.Client
	gens     *Generations
	log      *zap.SugaredLogger

	apiTTL     time.Duration
	apiTimeout time.Duration
	now        func() time.Time
}

// New builds a handler fronting the given upstream origin.
func New(upstreamURL string, apiTTL time.Duration, log *zap.SugaredLogger) (*Handler, error) {
	u, err := url.Parse(upstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", upstreamURL, err)
	}
	if apiTTL <= 0 {
		apiTTL = defaultAPITTL
	}
	return &Handler{
		upstream:   u,
		client:     &http.Client{},
		gens:       NewGenerations(),
		log:        log,
		apiTTL:     apiTTL,
		apiTimeout: defaultAPITimeout,
		now:        time.Now,
	}, nil
}

// Generations exposes the generation store, mainly for the activation flow
// and for tests.
func (h *Handler) Generations() *Generations {
	return h.gens
}

// Install pre-populates the static generation for a new version with the
// precache manifest. The version does not serve traffic until Activate.
// Individual asset failures are logged and skipped; an unreachable upstream
// still leaves the version installable (cache misses fall through later).
func (h *Handler) Install(ctx context.Context, version string, manifest []string) {
	for _, path := range manifest {
		e, err := h.fetchPath(ctx, path, false)
		if err != nil || e.Status != http.StatusOK {
			h.log.Warnw("Failed to precache asset", zap.String("path", path), zap.Error(err))
			continue
		}
		h.gens.PutVersion(GenStatic, version, path, e)
	}
	h.log.Infow("Install finished", zap.String("version", version), zap.Int("assets", len(manifest)))
}

// Activate makes version current and evicts every superseded generation.
func (h *Handler) Activate(version string) {
	deleted := h.gens.Activate(version)
	h.log.Infow("Activated cache generations",
		zap.String("version", version),
		zap.Strings("deleted", deleted),
	)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.networkOnly(w, r)
		return
	}

	switch Classify(r.URL) {
	case ClassScript:
		h.serveScript(w, r)
	case ClassAsset:
		h.serveAsset(w, r)
	case ClassGame:
		h.serveGame(w, r)
	case ClassAPI:
		h.serveAPI(w, r)
	default:
		h.networkOnly(w, r)
	}
}

func requestKey(r *http.Request) string {
	return r.URL.RequestURI()
}

// serveScript prefers a fresh network copy (bypassing intermediary caches),
// falling back to a possibly-stale cached copy only when the network fails
// entirely.
func (h *Handler) serveScript(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)
	e, err := h.fetch(r.Context(), r, true)
	if err == nil && e.Status == http.StatusOK {
		h.gens.Put(GenStatic, key, e)
		writeEntry(w, e)
		return
	}
	if cached, ok := h.gens.Get(GenStatic, key); ok {
		writeEntry(w, cached)
		return
	}
	if err == nil {
		// Network answered with a non-OK status and there is no cached
		// copy; pass the answer through untouched.
		writeEntry(w, e)
		return
	}
	h.syntheticText(w, "Network error")
}

// serveAsset is stale-while-revalidate: a cached copy is returned
// immediately while a background fetch refreshes the entry for next time.
// Only a cache miss blocks on the network.
func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)
	if cached, ok := h.gens.Get(GenStatic, key); ok {
		go h.revalidate(GenStatic, key)
		writeEntry(w, cached)
		return
	}

	e, err := h.fetch(r.Context(), r, false)
	if err == nil && e.Status == http.StatusOK {
		h.gens.Put(GenStatic, key, e)
		writeEntry(w, e)
		return
	}
	if err == nil {
		writeEntry(w, e)
		return
	}
	// Only page requests degrade to the offline page; failed images, fonts
	// and the like get a plain error.
	if isPageRequest(r.URL.Path) {
		if offline, ok := h.gens.Get(GenStatic, "/offline.html"); ok {
			writeEntry(w, offline)
			return
		}
	}
	h.syntheticText(w, "Network error")
}

func isPageRequest(path string) bool {
	return path == "/" || strings.HasSuffix(strings.ToLower(path), ".html")
}

// revalidate refreshes a cached entry in the background. It deliberately
// ignores the originating request's context: the fetch outliving the request
// and populating the cache is harmless, and the next reader simply sees
// whichever write landed last.
func (h *Handler) revalidate(class GenClass, key string) {
	e, err := h.fetchPath(context.Background(), key, true)
	if err != nil || e.Status != http.StatusOK {
		return
	}
	h.gens.Put(class, key, e)
}

// serveGame is network-first with cache fallback. A total failure yields a
// synthetic unavailable page instead of an error reaching the embedding
// frame.
func (h *Handler) serveGame(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)
	e, err := h.fetch(r.Context(), r, false)
	if err == nil && e.Status >= 200 && e.Status < 300 {
		h.gens.Put(GenGames, key, e)
		writeEntry(w, e)
		return
	}
	if cached, ok := h.gens.Get(GenGames, key); ok {
		writeEntry(w, cached)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusServiceUnavailable)
	io.WriteString(w, "Game temporarily unavailable. Please try again later.")
}

// serveAPI is network-first with a short timeout. Successful responses are
// cached with a freshness timestamp; on failure the cached copy is served
// only while younger than the TTL, after which a synthetic error payload is
// returned rather than stale data.
func (h *Handler) serveAPI(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)
	ctx, cancel := context.WithTimeout(r.Context(), h.apiTimeout)
	defer cancel()

	e, err := h.fetch(ctx, r, false)
	if err == nil && e.Status == http.StatusOK {
		e.StoredAt = h.now()
		h.gens.Put(GenAPI, key, e)
		writeEntry(w, e)
		return
	}

	if cached, ok := h.gens.Get(GenAPI, key); ok {
		if h.now().Sub(cached.StoredAt) < h.apiTTL {
			writeEntry(w, cached)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	io.WriteString(w, `{"error":"Service temporarily unavailable"}`)
}

// networkOnly proxies the request without touching any cache.
func (h *Handler) networkOnly(w http.ResponseWriter, r *http.Request) {
	e, err := h.fetch(r.Context(), r, false)
	if err != nil {
		h.syntheticText(w, "Network error")
		return
	}
	writeEntry(w, e)
}

func (h *Handler) syntheticText(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusServiceUnavailable)
	io.WriteString(w, msg)
}

// fetch performs the upstream request for r and snapshots the response.
// The method and body carry over so non-GET passthrough stays faithful.
func (h *Handler) fetch(ctx context.Context, r *http.Request, noCache bool) (Entry, error) {
	target := *h.upstream
	target.Path = r.URL.Path
	target.RawQuery = r.URL.RawQuery
	return h.do(ctx, r.Method, target.String(), r.Body, r.Header.Get("User-Agent"), noCache)
}

// fetchPath performs an upstream GET for a site-relative path.
func (h *Handler) fetchPath(ctx context.Context, path string, noCache bool) (Entry, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return Entry{}, err
	}
	return h.do(ctx, http.MethodGet, h.upstream.ResolveReference(ref).String(), nil, "", noCache)
}

func (h *Handler) do(ctx context.Context, method, rawURL string, body io.Reader, userAgent string, noCache bool) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return Entry{}, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if noCache {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     data,
		StoredAt: h.now(),
	}, nil
}

func writeEntry(w http.ResponseWriter, e Entry) {
	for k, vals := range e.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(e.Status)
	w.Write(e.Body)
}
