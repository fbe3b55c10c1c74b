package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"minigameshub-edge/catalog"
	"minigameshub-edge/config"
)

const defaultTimeout = 5 * time.Second

// Mutation kinds accepted by ApplyMutation.
const (
	KindPlayIncrement = "play_increment"
	KindRatingUpdate  = "rating_update"
)

// Mutation is a single catalog write: increment a game's play counter or
// replace its rating.
type Mutation struct {
	Kind     string
	TargetID int
	Amount   int     // play_increment: delta, must be > 0
	Value    float64 // rating_update: replacement rating
}

// Client is the sole boundary that talks to the remote catalog store.
type Client struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new catalog store client using the provided configuration.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is not configured")
	}
	if cfg.UserAgent == "" {
		// Should be handled by LoadConfig default, but double-check
		return nil, fmt.Errorf("USERAGENT is not configured")
	}

	return &Client{
		BaseURL:   cfg.BackendURL,
		APIKey:    cfg.BackendAPIKey,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

func (c *Client) makeRequest(ctx context.Context, method, path string, queryParams url.Values, body, target interface{}) (int, error) {
	fullURL := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if queryParams != nil {
		req.URL.RawQuery = queryParams.Encode()
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Try to read body for more error info, but don't fail if it's unreadable
		bodyBytes, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("api request failed: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode json response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// FetchCatalog retrieves the published games and all categories, normalized
// into the canonical catalog shapes. Any transport or decoding failure is
// reported as ErrRemoteUnavailable; callers must have a fallback dataset.
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.Game, []catalog.Category, error) {
	params := url.Values{}
	params.Add("published", "1")

	var rawGames []gameRow
	if _, err := c.makeRequest(ctx, "GET", "/api/games", params, nil, &rawGames); err != nil {
		return nil, nil, fmt.Errorf("%w: fetching games: %v", ErrRemoteUnavailable, err)
	}

	var rawCategories []categoryRow
	if _, err := c.makeRequest(ctx, "GET", "/api/categories", nil, nil, &rawCategories); err != nil {
		return nil, nil, fmt.Errorf("%w: fetching categories: %v", ErrRemoteUnavailable, err)
	}

	games := make([]catalog.Game, 0, len(rawGames))
	for _, row := range rawGames {
		games = append(games, row.normalize())
	}
	categories := make([]catalog.Category, 0, len(rawCategories))
	for _, row := range rawCategories {
		categories = append(categories, row.normalize())
	}
	return games, categories, nil
}

// ApplyMutation attempts a single remote write. Failures are classified:
// errors matching ErrRetryable should be queued and replayed, errors matching
// ErrRejected must be dropped without retry.
func (c *Client) ApplyMutation(ctx context.Context, m Mutation) error {
	switch m.Kind {
	case KindPlayIncrement:
		if m.Amount <= 0 {
			return fmt.Errorf("%w: play increment must be positive", ErrRejected)
		}
		body := map[string]int{"amount": m.Amount}
		path := fmt.Sprintf("/api/games/%d/plays", m.TargetID)
		status, err := c.makeRequest(ctx, "POST", path, nil, body, nil)
		return classifyMutationResult(status, err)

	case KindRatingUpdate:
		if m.Value < 0 || m.Value > 5 {
			return fmt.Errorf("%w: rating %v outside [0,5]", ErrRejected, m.Value)
		}
		body := map[string]float64{"rating": m.Value}
		path := fmt.Sprintf("/api/games/%d", m.TargetID)
		status, err := c.makeRequest(ctx, "PATCH", path, nil, body, nil)
		return classifyMutationResult(status, err)

	default:
		return fmt.Errorf("%w: unknown mutation kind %q", ErrRejected, m.Kind)
	}
}

func classifyMutationResult(status int, err error) error {
	if err == nil {
		return nil
	}
	if status == 0 {
		// Never reached the store (network error, timeout, cancellation).
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	}
	return fmt.Errorf("%w: %v", classifyWriteError(status), err)
}

// --- Raw row shapes from the store ---
// The backend exposes several historical field spellings per concept
// (name vs game_name, stringly-typed flags and numerics). They are folded
// into the canonical shape here and nowhere else.

type gameRow struct {
	GameID       int    `json:"game_id"`
	CatalogID    int    `json:"catalog_id"`
	GameName     string `json:"game_name"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Category     number `json:"category"`
	Plays        number `json:"plays"`
	Rating       number `json:"rating"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	File         string `json:"file"`
	Width        number `json:"w"`
	Height       number `json:"h"`
	DateAdded    string `json:"date_added"`
	Published    flag   `json:"published"`
	Featured     flag   `json:"featured"`
	Mobile       flag   `json:"mobile"`
}

func (r gameRow) normalize() catalog.Game {
	name := r.Name
	if name == "" {
		name = r.GameName
	}
	width := intOr(r.Width, 800)
	height := intOr(r.Height, 600)

	var added time.Time
	if r.DateAdded != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, r.DateAdded); err == nil {
				added = t
				break
			}
		}
	}

	return catalog.Game{
		ID:           r.GameID,
		CatalogID:    r.CatalogID,
		Name:         name,
		Slug:         catalog.Slugify(name),
		Image:        r.Image,
		Description:  r.Description,
		Instructions: r.Instructions,
		File:         r.File,
		Category:     intOr(r.Category, 0),
		Plays:        intOr(r.Plays, 0),
		Rating:       catalog.ClampRating(floatOr(r.Rating, 0)),
		Width:        width,
		Height:       height,
		DateAdded:    added,
		Published:    bool(r.Published),
		Featured:     bool(r.Featured),
		Mobile:       bool(r.Mobile),
	}
}

type categoryRow struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r categoryRow) normalize() catalog.Category {
	return catalog.Category{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Slug:        catalog.Slugify(r.Name),
	}
}

// flag decodes the store's assorted boolean spellings: true/false, 0/1, and
// the strings "0"/"1"/"true"/"false". Anything unrecognized is false.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1", `"1"`, `"true"`:
		*f = true
	default:
		*f = false
	}
	return nil
}

// number decodes numeric columns that arrive as JSON numbers or as quoted
// strings ("123", "4.5"). Null and empty values decode to the zero value.
type number string

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*n = number(s)
	return nil
}

func intOr(n number, def int) int {
	if n == "" {
		return def
	}
	if v, err := strconv.Atoi(string(n)); err == nil {
		return v
	}
	// Some rows carry floats in integer columns
	if fv, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int(fv)
	}
	return def
}

func floatOr(n number, def float64) float64 {
	if n == "" {
		return def
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return def
	}
	return v
}
