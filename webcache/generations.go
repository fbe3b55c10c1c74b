package webcache

import (
	"net/http"
	"sort"
	"sync"
	"time"
)

// GenClass names the three cache generation families.
type GenClass int

const (
	GenStatic GenClass = iota
	GenGames
	GenAPI
)

var genPrefixes = map[GenClass]string{
	GenStatic: "minigameshub-",
	GenGames:  "minigameshub-games-",
	GenAPI:    "minigameshub-api-",
}

// Entry is one cached response snapshot. Entries are immutable once stored;
// a refresh replaces the whole entry (last writer wins).
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Generations owns the named cache generations. Each generation is a
// version-suffixed map of request key to response snapshot. At most one
// version is current: activating a new one deletes every generation whose
// name does not carry the current version, across all three classes.
type Generations struct {
	mu      sync.RWMutex
	version string
	caches  map[string]map[string]Entry // generation name -> request key -> entry
}

// NewGenerations returns an empty store with no current version. Nothing is
// served until Activate.
func NewGenerations() *Generations {
	return &Generations{caches: make(map[string]map[string]Entry)}
}

func genName(class GenClass, version string) string {
	return genPrefixes[class] + version
}

// PutVersion stores an entry into a specific version's generation, creating
// it if needed. Used during install to pre-populate a not-yet-active version.
func (g *Generations) PutVersion(class GenClass, version, key string, e Entry) {
	name := genName(class, version)
	g.mu.Lock()
	defer g.mu.Unlock()
	cache, ok := g.caches[name]
	if !ok {
		cache = make(map[string]Entry)
		g.caches[name] = cache
	}
	cache[key] = e
}

// Put stores an entry into the current generation for the class. A put with
// no active version is dropped.
func (g *Generations) Put(class GenClass, key string, e Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.version == "" {
		return
	}
	name := genName(class, g.version)
	cache, ok := g.caches[name]
	if !ok {
		cache = make(map[string]Entry)
		g.caches[name] = cache
	}
	cache[key] = e
}

// Get looks up an entry in the current generation for the class. Entries in
// superseded generations are never served.
func (g *Generations) Get(class GenClass, key string) (Entry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.version == "" {
		return Entry{}, false
	}
	cache, ok := g.caches[genName(class, g.version)]
	if !ok {
		return Entry{}, false
	}
	e, ok := cache[key]
	return e, ok
}

// Activate makes version the single current generation set and deletes every
// generation named for any other version. Returns the deleted names.
func (g *Generations) Activate(version string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	keep := map[string]bool{
		genName(GenStatic, version): true,
		genName(GenGames, version):  true,
		genName(GenAPI, version):    true,
	}
	var deleted []string
	for name := range g.caches {
		if !keep[name] {
			delete(g.caches, name)
			deleted = append(deleted, name)
		}
	}
	// Generations for the new version are created on first write, not here.
	g.version = version
	sort.Strings(deleted)
	return deleted
}

// Version reports the currently active version, empty before first Activate.
func (g *Generations) Version() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Names lists the existing generation names, sorted.
func (g *Generations) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.caches))
	for name := range g.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
