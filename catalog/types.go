package catalog

import (
	"regexp"
	"strings"
	"time"
)

// Game is the canonical catalog item. All alternate backend field shapes are
// normalized into this struct at the backend boundary; nothing downstream
// branches on raw row fields.
type Game struct {
	ID           int
	CatalogID    int
	Name         string
	Slug         string
	Image        string
	Description  string
	Instructions string
	File         string  // Embed/launch URL
	Category     int     // Category ID reference
	CategoryName string  // Denormalized at load time
	Plays        int     // Non-negative, never decremented
	Rating       float64 // Clamped to [0,5]
	Width        int
	Height       int
	DateAdded    time.Time
	Published    bool
	Featured     bool
	Mobile       bool
}

// Category groups games. GameCount is recomputed on every load, never stored.
type Category struct {
	ID          int
	Name        string
	Description string
	Slug        string
	GameCount   int
}

// Stats summarizes the loaded dataset.
type Stats struct {
	TotalGames      int
	TotalCategories int
	TotalPlays      int
	FeaturedGames   int
	AverageRating   float64
	LastUpdated     time.Time
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-friendly slug from a display name. It is
// deterministic: the same name always yields the same slug.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ClampRating bounds a rating to the valid [0,5] range.
func ClampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}

// searchText returns the combined lowercase text a game is matched against.
func (g Game) searchText() string {
	return strings.ToLower(g.Name + " " + g.Description + " " + g.CategoryName)
}
