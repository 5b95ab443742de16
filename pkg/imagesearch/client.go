package imagesearch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Candidate is one discovered image with its reported dimensions.
type Candidate struct {
	URL    string
	Height int
	Width  int
}

// Searcher is the external image-discovery capability.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// The result page embeds image entries as ["URL", height, width] triples.
var imageTriple = regexp.MustCompile(`\["(https?://[^"\s]+\.(?:jpg|jpeg|png|webp))",(\d+),(\d+)\]`)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return ParseCandidates(string(body)), nil
}

func (c *Client) searchURL(query string) string {
	params := url.Values{
		"as_st": {"y"},
		"as_q":  {query},
		"as_oq": {"bottle OR packaging"},
		"as_eq": {"glass interior"},
		"udm":   {"2"},
		"tbs":   {"isz:m"},
		"hl":    {"ko"},
	}
	return c.baseURL + "?" + params.Encode()
}

// ParseCandidates extracts all image triples from a result page.
func ParseCandidates(html string) []Candidate {
	var out []Candidate
	for _, match := range imageTriple.FindAllStringSubmatch(html, -1) {
		height, _ := strconv.Atoi(match[2])
		width, _ := strconv.Atoi(match[3])
		out = append(out, Candidate{URL: match[1], Height: height, Width: width})
	}
	return out
}

// SelectBest applies the catalog's filters client-side and returns the first
// acceptable candidate, or "" when none qualifies:
// portrait orientation only, and thumbnail-host URLs are trusted only when
// the URL is long enough to be a full-size asset.
func SelectBest(candidates []Candidate) string {
	for _, c := range candidates {
		if c.Width > c.Height {
			continue
		}
		if isThumbnailHost(c.URL) && len(c.URL) < 50 {
			continue
		}
		return c.URL
	}
	return ""
}

func isThumbnailHost(imgURL string) bool {
	u, err := url.Parse(imgURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "gstatic.com" || host == "google.com" ||
		strings.HasSuffix(host, ".gstatic.com") ||
		strings.HasSuffix(host, ".google.com")
}
