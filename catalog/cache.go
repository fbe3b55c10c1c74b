package catalog

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Cache holds the loaded dataset and its derived views. Load replaces the
// backing data wholesale; every getter works on the views built at load time
// and returns copies, so callers never observe a half-replaced dataset.
//
// A Cache that has never been loaded serves empty results from every getter.
// Catalog-not-ready is a valid state, not an error.
type Cache struct {
	mu sync.RWMutex

	loaded     bool
	games      []Game
	categories []Category

	// Derived views, rebuilt on every Load.
	featured []Game // featured flag first, then rating desc, plays desc
	popular  []Game // plays desc
	newest   []Game // date added desc

	// Lazy per-category index, cleared on Load.
	byCategory map[int][]Game
	bySlug     map[string]int // category slug -> ID

	loadedCh  chan struct{}
	closeOnce sync.Once
	updatedAt time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		byCategory: make(map[int][]Game),
		bySlug:     make(map[string]int),
		loadedCh:   make(chan struct{}),
	}
}

// Loaded returns a channel closed after the first successful Load. It is
// cheap to wait on repeatedly and never re-opens.
func (c *Cache) Loaded() <-chan struct{} {
	return c.loadedCh
}

// Load replaces the backing dataset and rebuilds all derived views. It is the
// only operation that changes the data the cache serves.
func (c *Cache) Load(games []Game, categories []Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.games = make([]Game, 0, len(games))
	c.categories = make([]Category, len(categories))
	copy(c.categories, categories)

	counts := make(map[int]int)
	names := make(map[int]string)
	c.bySlug = make(map[string]int, len(categories))
	for i := range c.categories {
		cat := &c.categories[i]
		if cat.Slug == "" {
			cat.Slug = Slugify(cat.Name)
		}
		names[cat.ID] = cat.Name
		c.bySlug[cat.Slug] = cat.ID
	}

	for _, g := range games {
		if !g.Published {
			continue
		}
		g.Rating = ClampRating(g.Rating)
		if g.Plays < 0 {
			g.Plays = 0
		}
		if g.Slug == "" {
			g.Slug = Slugify(g.Name)
		}
		if name, ok := names[g.Category]; ok {
			g.CategoryName = name
		} else {
			g.CategoryName = "Uncategorized"
		}
		counts[g.Category]++
		c.games = append(c.games, g)
	}

	for i := range c.categories {
		c.categories[i].GameCount = counts[c.categories[i].ID]
	}
	sort.Slice(c.categories, func(i, j int) bool {
		return c.categories[i].GameCount > c.categories[j].GameCount
	})

	c.rebuildViewsLocked()
	c.byCategory = make(map[int][]Game)
	c.updatedAt = time.Now()
	c.loaded = true
	c.closeOnce.Do(func() { close(c.loadedCh) })
}

// rebuildViewsLocked recomputes the precomputed orderings. Caller holds mu.
func (c *Cache) rebuildViewsLocked() {
	c.featured = sortedCopy(c.games, func(a, b Game) bool {
		if a.Featured != b.Featured {
			return a.Featured
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.Plays > b.Plays
	})
	c.popular = sortedCopy(c.games, func(a, b Game) bool {
		return a.Plays > b.Plays
	})
	c.newest = sortedCopy(c.games, func(a, b Game) bool {
		return a.DateAdded.After(b.DateAdded)
	})
}

func sortedCopy(games []Game, less func(a, b Game) bool) []Game {
	out := make([]Game, len(games))
	copy(out, games)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Featured returns at least min games when the dataset allows: flagged games
// first (rating desc, plays desc), backfilled with the highest-rated
// non-featured games, deduplicated by ID. Sparse curation must never leave a
// featured section empty while any games exist.
func (c *Cache) Featured(min int) []Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || min <= 0 {
		return nil
	}

	out := make([]Game, 0, min)
	seen := make(map[int]bool, min)
	for _, g := range c.featured {
		if !g.Featured || len(out) >= min {
			break
		}
		out = append(out, g)
		seen[g.ID] = true
	}
	if len(out) < min {
		// Backfill by rating; c.featured already orders non-flagged games
		// by rating desc after the flagged block.
		for _, g := range c.featured {
			if len(out) >= min {
				break
			}
			if seen[g.ID] {
				continue
			}
			out = append(out, g)
			seen[g.ID] = true
		}
	}
	return out
}

// Popular returns the most-played games, all of them when limit <= 0.
func (c *Cache) Popular(limit int) []Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return limitCopy(c.popular, limit)
}

// Newest returns the most recently added games, all of them when limit <= 0.
func (c *Cache) Newest(limit int) []Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return limitCopy(c.newest, limit)
}

// Games returns the full loaded dataset.
func (c *Cache) Games() []Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return limitCopy(c.games, 0)
}

// Categories returns all categories, ordered by game count.
func (c *Cache) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func limitCopy(games []Game, limit int) []Game {
	n := len(games)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Game, n)
	copy(out, games[:n])
	return out
}

// ByCategory resolves a category by numeric ID or slug and returns its games.
// The per-category index is built lazily on first access and reused until the
// next Load.
func (c *Cache) ByCategory(idOrSlug string) []Game {
	id, ok := c.resolveCategory(idOrSlug)
	if !ok {
		return nil
	}

	c.mu.RLock()
	if games, ok := c.byCategory[id]; ok {
		out := limitCopy(games, 0)
		c.mu.RUnlock()
		return out
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if games, ok := c.byCategory[id]; ok { // rebuilt by a racing caller
		return limitCopy(games, 0)
	}
	var games []Game
	for _, g := range c.games {
		if g.Category == id {
			games = append(games, g)
		}
	}
	c.byCategory[id] = games
	return limitCopy(games, 0)
}

func (c *Cache) resolveCategory(idOrSlug string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return 0, false
	}
	if id, err := strconv.Atoi(idOrSlug); err == nil {
		for _, cat := range c.categories {
			if cat.ID == id {
				return id, true
			}
		}
		return 0, false
	}
	if id, ok := c.bySlug[idOrSlug]; ok {
		return id, true
	}
	return 0, false
}

// GameByID returns the game with the given ID.
func (c *Cache) GameByID(id int) (Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// GameBySlug returns the game with the given slug.
func (c *Cache) GameBySlug(slug string) (Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.games {
		if g.Slug == slug {
			return g, true
		}
	}
	return Game{}, false
}

// CategoryBySlug returns the category with the given slug.
func (c *Cache) CategoryBySlug(slug string) (Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.Slug == slug {
			return cat, true
		}
	}
	return Category{}, false
}

// Related returns up to n games sharing the given game's category, topped up
// with the highest-rated games from other categories.
func (c *Cache) Related(id, n int) []Game {
	game, ok := c.GameByID(id)
	if !ok || n <= 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Game, 0, n)
	seen := map[int]bool{id: true}
	for _, g := range c.games {
		if len(out) >= n {
			break
		}
		if g.Category == game.Category && !seen[g.ID] {
			out = append(out, g)
			seen[g.ID] = true
		}
	}
	for _, g := range c.featured {
		if len(out) >= n {
			break
		}
		if !seen[g.ID] {
			out = append(out, g)
			seen[g.ID] = true
		}
	}
	return out
}

// UpdateStats applies a local optimistic metric change: a non-negative play
// delta and/or a replacement rating. Plays only ever grow; ratings are
// clamped. Derived views are rebuilt so popularity orderings stay consistent.
func (c *Cache) UpdateStats(id int, playsDelta int, rating *float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.games {
		if c.games[i].ID != id {
			continue
		}
		if playsDelta > 0 {
			c.games[i].Plays += playsDelta
		}
		if rating != nil {
			c.games[i].Rating = ClampRating(*rating)
		}
		c.rebuildViewsLocked()
		c.byCategory = make(map[int][]Game)
		return true
	}
	return false
}

// Stats computes summary statistics for the loaded dataset.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		TotalGames:      len(c.games),
		TotalCategories: len(c.categories),
		LastUpdated:     c.updatedAt,
	}
	var ratingSum float64
	for _, g := range c.games {
		s.TotalPlays += g.Plays
		ratingSum += g.Rating
		if g.Featured {
			s.FeaturedGames++
		}
	}
	if len(c.games) > 0 {
		s.AverageRating = ratingSum / float64(len(c.games))
	}
	return s
}
