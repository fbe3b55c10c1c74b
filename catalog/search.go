package catalog

import (
	"sort"
	"strings"
)

// Sort orders accepted by Search.
const (
	SortRelevance  = "relevance"
	SortPopularity = "popularity"
	SortRating     = "rating"
	SortName       = "name"
)

// SearchOptions narrows and orders a search. The zero value means: no
// category filter, default limit, relevance order.
type SearchOptions struct {
	Category string // Category ID or slug; empty matches every category
	Limit    int    // Max results; defaults to 20
	SortBy   string // relevance (default), popularity, rating or name
}

type scoredGame struct {
	game  Game
	score int
}

// Search matches games against a free-text query. A game matching the whole
// query as a substring of its name, description and category name scores 10;
// otherwise it scores 2 per distinct matched token. Games scoring 0 are
// excluded. Queries shorter than 2 characters after trimming return nothing.
func (c *Cache) Search(query string, opts SearchOptions) []Game {
	term := strings.ToLower(strings.TrimSpace(query))
	if len(term) < 2 {
		return nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	var tokens []string
	for _, w := range strings.Fields(term) {
		if len(w) > 1 {
			tokens = append(tokens, w)
		}
	}

	categoryID := -1
	if opts.Category != "" {
		id, ok := c.resolveCategory(opts.Category)
		if !ok {
			return nil
		}
		categoryID = id
	}

	c.mu.RLock()
	var matched []scoredGame
	for _, g := range c.games {
		if categoryID >= 0 && g.Category != categoryID {
			continue
		}
		score := scoreGame(g, term, tokens)
		if score > 0 {
			matched = append(matched, scoredGame{game: g, score: score})
		}
	}
	c.mu.RUnlock()

	switch opts.SortBy {
	case SortPopularity:
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].game.Plays > matched[j].game.Plays
		})
	case SortRating:
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].game.Rating > matched[j].game.Rating
		})
	case SortName:
		sort.SliceStable(matched, func(i, j int) bool {
			return strings.ToLower(matched[i].game.Name) < strings.ToLower(matched[j].game.Name)
		})
	default: // relevance
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].score > matched[j].score
		})
	}

	if len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	out := make([]Game, len(matched))
	for i, m := range matched {
		out[i] = m.game
	}
	return out
}

func scoreGame(g Game, term string, tokens []string) int {
	text := g.searchText()
	if strings.Contains(text, term) {
		return 10
	}
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			hits++
		}
	}
	return hits * 2
}
