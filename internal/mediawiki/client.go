// Package mediawiki implements the content service contract against the
// MediaWiki action API (api.php).
package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"viki/vikigraph/internal/wiki"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "viki_mediawiki_request_duration_seconds",
		Help:    "MediaWiki API request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	}, []string{"action"})

	requestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viki_mediawiki_request_errors_total",
		Help: "MediaWiki API request failures by action and code",
	}, []string{"action", "code"})
)

// maxContinuations bounds the number of follow-up requests for one query.
const maxContinuations = 20

// ErrTruncated is returned, alongside the results gathered so far, when a
// query still has more pages after maxContinuations requests.
var ErrTruncated = errors.New("result truncated")

// APIError is an error payload returned by the API, or a non-2xx response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Info       string `json:"info"`
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mediawiki API error (status %d): %s", e.StatusCode, e.Info)
	}
	return fmt.Sprintf("mediawiki API error (%s): %s", e.Code, e.Info)
}

// Unwrap maps unsupported actions to wiki.ErrUnknownAction.
func (e *APIError) Unwrap() error {
	if e.Code == "unknown_action" || e.Code == "badvalue" {
		return wiki.ErrUnknownAction
	}
	return nil
}

// Client queries MediaWiki installations. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit paces requests across all sources. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// d <= 0 keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client with a 30 second request timeout and no pacing.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		userAgent:  "viki/1.0",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ wiki.Client = (*Client)(nil)

type pageLink struct {
	NS    int    `json:"ns"`
	Title string `json:"title"`
}

type page struct {
	Title      string              `json:"title"`
	Missing    json.RawMessage     `json:"missing"`
	Invalid    json.RawMessage     `json:"invalid"`
	ExtLinks   []map[string]string `json:"extlinks"`
	Links      []pageLink          `json:"links"`
	Categories []pageLink          `json:"categories"`
}

type response struct {
	Error    *APIError      `json:"error"`
	Continue map[string]any `json:"continue"`
	Query    struct {
		Pages           map[string]page `json:"pages"`
		Backlinks       []pageLink      `json:"backlinks"`
		CategoryMembers []pageLink      `json:"categorymembers"`
	} `json:"query"`
	ContentNamespaces []int `json:"getContentNamespaces"`
}

// firstPage returns the single page of a titles= query.
func (r *response) firstPage() (string, page, bool) {
	for id, p := range r.Query.Pages {
		return id, p, true
	}
	return "", page{}, false
}

// ExternalLinks implements wiki.Client.
func (c *Client) ExternalLinks(ctx context.Context, src *wiki.Source, title string) ([]string, error) {
	params := url.Values{"action": {"query"}, "prop": {"extlinks"}, "titles": {title}, "ellimit": {"max"}}
	var urls []string
	err := c.queryAll(ctx, src.APIURL, params, func(r *response) {
		if _, p, ok := r.firstPage(); ok {
			for _, el := range p.ExtLinks {
				if u := el["*"]; u != "" {
					urls = append(urls, u)
				} else if u := el["url"]; u != "" {
					urls = append(urls, u)
				}
			}
		}
	})
	return urls, err
}

// OutgoingLinks implements wiki.Client.
func (c *Client) OutgoingLinks(ctx context.Context, src *wiki.Source, title string) ([]wiki.PageRef, error) {
	params := url.Values{"action": {"query"}, "prop": {"links"}, "titles": {title}, "pllimit": {"max"}}
	var refs []wiki.PageRef
	err := c.queryAll(ctx, src.APIURL, params, func(r *response) {
		if _, p, ok := r.firstPage(); ok {
			refs = appendRefs(refs, p.Links)
		}
	})
	return refs, err
}

// IncomingLinks implements wiki.Client.
func (c *Client) IncomingLinks(ctx context.Context, src *wiki.Source, title string) ([]wiki.PageRef, error) {
	params := url.Values{"action": {"query"}, "list": {"backlinks"}, "bltitle": {title}, "bllimit": {"max"}}
	var refs []wiki.PageRef
	err := c.queryAll(ctx, src.APIURL, params, func(r *response) {
		refs = appendRefs(refs, r.Query.Backlinks)
	})
	return refs, err
}

// PageInfo implements wiki.Client. A page reported under id "-1" or flagged
// missing does not exist.
func (c *Client) PageInfo(ctx context.Context, src *wiki.Source, title string) (wiki.PageInfo, error) {
	params := url.Values{"action": {"query"}, "prop": {"categories"}, "titles": {title}, "cllimit": {"max"}}
	var info wiki.PageInfo
	err := c.queryAll(ctx, src.APIURL, params, func(r *response) {
		if _, ok := r.Query.Pages["-1"]; ok || len(r.Query.Pages) == 0 {
			info.Missing = true
			return
		}
		_, p, _ := r.firstPage()
		if len(p.Missing) > 0 || len(p.Invalid) > 0 {
			info.Missing = true
			return
		}
		for _, cat := range p.Categories {
			info.Categories = append(info.Categories, cat.Title)
		}
	})
	if err != nil {
		return wiki.PageInfo{}, err
	}
	return info, nil
}

// ContentNamespaces implements wiki.Client using the getContentNamespaces
// action. Installations without it report wiki.ErrUnknownAction.
func (c *Client) ContentNamespaces(ctx context.Context, src *wiki.Source) ([]int, error) {
	var r response
	if err := c.query(ctx, src.APIURL, url.Values{"action": {"getContentNamespaces"}}, &r); err != nil {
		return nil, err
	}
	return r.ContentNamespaces, nil
}

// CategoryMembers implements wiki.Client.
func (c *Client) CategoryMembers(ctx context.Context, src *wiki.Source, category string) ([]string, error) {
	if !strings.HasPrefix(category, wiki.CategoryPrefix) {
		category = wiki.CategoryPrefix + category
	}
	params := url.Values{"action": {"query"}, "list": {"categorymembers"}, "cmtitle": {category}, "cmlimit": {"max"}}
	var titles []string
	err := c.queryAll(ctx, src.APIURL, params, func(r *response) {
		for _, m := range r.Query.CategoryMembers {
			titles = append(titles, m.Title)
		}
	})
	return titles, err
}

func appendRefs(refs []wiki.PageRef, links []pageLink) []wiki.PageRef {
	for _, l := range links {
		refs = append(refs, wiki.PageRef{Title: l.Title, NS: l.NS})
	}
	return refs
}

// queryAll runs a query and follows continuation tokens, handing every
// response page to collect. Past maxContinuations it stops with ErrTruncated.
func (c *Client) queryAll(ctx context.Context, apiURL string, params url.Values, collect func(*response)) error {
	for range maxContinuations {
		var r response
		if err := c.query(ctx, apiURL, params, &r); err != nil {
			return err
		}
		collect(&r)
		if len(r.Continue) == 0 {
			return nil
		}
		next := url.Values{}
		for k, v := range params {
			next[k] = v
		}
		for k, v := range r.Continue {
			next.Set(k, fmt.Sprint(v))
		}
		params = next
	}
	return fmt.Errorf("%s %q: %w after %d requests", params.Get("action"), subject(params), ErrTruncated, maxContinuations)
}

// subject is the page or category a query is about.
func subject(params url.Values) string {
	for _, k := range []string{"titles", "bltitle", "cmtitle"} {
		if v := params.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) query(ctx context.Context, apiURL string, params url.Values, out *response) error {
	action := params.Get("action")
	if p := params.Get("prop"); p != "" {
		action += "." + p
	} else if l := params.Get("list"); l != "" {
		action += "." + l
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("format", "json")
	q.Set("redirects", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	if err != nil {
		requestErrors.WithLabelValues(action, "transport").Inc()
		return fmt.Errorf("requesting %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestErrors.WithLabelValues(action, "transport").Inc()
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		requestErrors.WithLabelValues(action, "http").Inc()
		return &APIError{StatusCode: resp.StatusCode, Code: "http", Info: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		requestErrors.WithLabelValues(action, "decode").Inc()
		return fmt.Errorf("decoding %s response: %w", action, err)
	}
	if out.Error != nil {
		requestErrors.WithLabelValues(action, out.Error.Code).Inc()
		return out.Error
	}
	return nil
}
