package signals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrMarkupNotFound reports that an expected element was absent from a
// fetched page, usually meaning the service changed its markup.
var ErrMarkupNotFound = errors.New("expected markup not found")

// Fetcher retrieves the two account signals over an authenticated
// transport. The two fetches are independent of each other.
type Fetcher struct {
	hc      *http.Client
	baseURL string
}

// NewFetcher wraps an authenticated HTTP client.
func NewFetcher(hc *http.Client, baseURL string) *Fetcher {
	return &Fetcher{hc: hc, baseURL: baseURL}
}

// Bans fetches the account status page and returns the listed ban reasons.
// An unbanned account yields an empty list.
func (f *Fetcher) Bans(ctx context.Context) ([]string, error) {
	doc, err := f.fetch(ctx, "/account/bans")
	if err != nil {
		return nil, err
	}

	var reasons []string
	doc.Find(".ban_status .ban_reason").Each(func(_ int, s *goquery.Selection) {
		if reason := strings.TrimSpace(s.Text()); reason != "" {
			reasons = append(reasons, reason)
		}
	})
	return reasons, nil
}

// Level fetches the profile page and extracts the numeric profile level.
func (f *Fetcher) Level(ctx context.Context) (int, error) {
	doc, err := f.fetch(ctx, "/profile")
	if err != nil {
		return 0, err
	}

	sel := doc.Find(".profile_level .level_number").First()
	if sel.Length() == 0 {
		return 0, fmt.Errorf("profile level: %w", ErrMarkupNotFound)
	}

	level, err := strconv.Atoi(strings.TrimSpace(sel.Text()))
	if err != nil {
		return 0, fmt.Errorf("profile level %q: %w", sel.Text(), ErrMarkupNotFound)
	}
	return level, nil
}

func (f *Fetcher) fetch(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: http status %d", path, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
