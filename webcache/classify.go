package webcache

import (
	"net/url"
	"regexp"
	"strings"
)

// Class is the request classification that selects a caching strategy.
// Exactly one class applies per request, decided purely from the URL before
// any network call.
type Class int

const (
	// ClassScript: JS/CSS. Fresh network preferred, stale cache fallback.
	ClassScript Class = iota
	// ClassAsset: images, fonts, manifest, pages. Stale-while-revalidate.
	ClassAsset
	// ClassGame: game/category content and third-party embeds. Network
	// first, cache fallback, synthetic unavailable response last.
	ClassGame
	// ClassAPI: data endpoints. Network first with a short timeout, cached
	// copy served only within the freshness TTL.
	ClassAPI
	// ClassOther: everything else. Network only.
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassScript:
		return "script"
	case ClassAsset:
		return "asset"
	case ClassGame:
		return "game"
	case ClassAPI:
		return "api"
	default:
		return "other"
	}
}

// Generation returns the cache generation class backing this request class.
// Scripts and assets share the static generation.
func (c Class) Generation() GenClass {
	switch c {
	case ClassScript, ClassAsset:
		return GenStatic
	case ClassGame:
		return GenGames
	case ClassAPI:
		return GenAPI
	default:
		return GenStatic
	}
}

var (
	gamePathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/games/.+\.html$`),
		regexp.MustCompile(`/categories/.+\.html$`),
	}
	embedHosts = []string{
		"img.gamemonetize.com",
		"html5.gamemonetize.com",
	}
	dataPattern = regexp.MustCompile(`/data/.+\.json$`)

	assetSuffixes = []string{
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
		".woff", ".woff2", ".ttf", ".html", "/manifest.json",
	}
)

// Classify maps a request URL to its strategy class. Host matching covers
// the third-party embed origins; everything else is decided from the path.
func Classify(u *url.URL) Class {
	host := strings.ToLower(u.Hostname())
	for _, h := range embedHosts {
		if host == h {
			return ClassGame
		}
	}

	path := strings.ToLower(u.Path)
	for _, p := range gamePathPatterns {
		if p.MatchString(path) {
			return ClassGame
		}
	}

	if strings.HasPrefix(path, "/api/") || dataPattern.MatchString(path) {
		return ClassAPI
	}

	if strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".css") {
		return ClassScript
	}

	if path == "/" {
		return ClassAsset
	}
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(path, suffix) {
			return ClassAsset
		}
	}

	return ClassOther
}
