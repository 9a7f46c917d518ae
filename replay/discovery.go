package replay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type DiscoveryConfig struct {
	BaseURL string
	// Leaderboards are paths under BaseURL, e.g. /leaderboard/standard.
	Leaderboards []string
	// RequestDelay is slept between player pages.
	RequestDelay time.Duration
	// MaxPlayers caps players checked per leaderboard. Zero means no cap.
	MaxPlayers int
}

func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		BaseURL:      "https://play.battlesnake.com",
		Leaderboards: []string{"/leaderboard/standard", "/leaderboard/standard-duels"},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   100,
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
)

// Discovery crawls leaderboards for the players on them and then each
// player's stats page for recent game IDs.
type Discovery struct {
	cfg    DiscoveryConfig
	client *http.Client
	log    *slog.Logger
	// skip reports IDs that are already handled, typically WrittenLog.Has.
	skip func(string) bool
	seen map[string]bool
}

func NewDiscovery(cfg DiscoveryConfig, skip func(string) bool, log *slog.Logger) *Discovery {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	return &Discovery{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
		skip:   skip,
		seen:   make(map[string]bool),
	}
}

// Discover sends every new game ID to out and returns how many it sent.
// A failing leaderboard or player page is logged and skipped.
func (d *Discovery) Discover(ctx context.Context, out chan<- string) (int, error) {
	sent := 0
	for _, lb := range d.cfg.Leaderboards {
		players, err := d.players(ctx, lb)
		if err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			d.log.Warn("leaderboard", "path", lb, "err", err)
			continue
		}
		if d.cfg.MaxPlayers > 0 && len(players) > d.cfg.MaxPlayers {
			players = players[:d.cfg.MaxPlayers]
		}
		d.log.Info("leaderboard", "path", lb, "players", len(players))

		for i, statsPath := range players {
			if i > 0 && d.cfg.RequestDelay > 0 {
				select {
				case <-ctx.Done():
					return sent, ctx.Err()
				case <-time.After(d.cfg.RequestDelay):
				}
			}
			ids, err := d.games(ctx, statsPath)
			if err != nil {
				if ctx.Err() != nil {
					return sent, ctx.Err()
				}
				d.log.Warn("player games", "path", statsPath, "err", err)
				continue
			}
			for _, id := range ids {
				if d.seen[id] || d.skip(id) {
					continue
				}
				d.seen[id] = true
				select {
				case out <- id:
					sent++
				case <-ctx.Done():
					return sent, ctx.Err()
				}
			}
		}
	}
	return sent, nil
}

// players returns the stats page paths linked from a leaderboard.
func (d *Discovery) players(ctx context.Context, path string) ([]string, error) {
	doc, err := d.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !playerRe.MatchString(href) || seen[href] {
			return
		}
		seen[href] = true
		out = append(out, href)
	})
	return out, nil
}

func (d *Discovery) games(ctx context.Context, path string) ([]string, error) {
	doc, err := d.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if m := gameIDRe.FindStringSubmatch(href); len(m) == 2 && !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	})
	return ids, nil
}

func (d *Discovery) fetch(ctx context.Context, path string) (*goquery.Document, error) {
	url := path
	if !strings.HasPrefix(path, "http") {
		url = strings.TrimRight(d.cfg.BaseURL, "/") + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "snekmax-replay/1.0")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
