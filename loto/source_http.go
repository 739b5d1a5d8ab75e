package loto

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	DefaultPageURL   = "https://www.fdj.fr/jeux-de-tirage/loto/historique"
	DefaultUserAgent = "loto-archiver/1.0"

	defaultHTTPTimeout      = 60 * time.Second
	defaultDownloadInterval = 1 * time.Second
)

// archiveHost is the storage host the history page links its archives to.
const archiveHost = "sto.api.fdj.fr"

// HTTPSourceOptions configures HTTPSource.
type HTTPSourceOptions struct {
	PageURL   string
	UserAgent string
	// Timeout bounds every request (default 60s).
	Timeout time.Duration
	// DownloadInterval spaces archive downloads (default 1s). Negative disables the limiter.
	DownloadInterval time.Duration
	// DatasetDir keeps a copy of every extracted CSV when set.
	DatasetDir string
	HTTPClient *http.Client
}

// HTTPSource scrapes the history page for archive links and downloads them.
type HTTPSource struct {
	opts    HTTPSourceOptions
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSource(opts HTTPSourceOptions) *HTTPSource {
	if opts.PageURL == "" {
		opts.PageURL = DefaultPageURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	if opts.DownloadInterval == 0 {
		opts.DownloadInterval = defaultDownloadInterval
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.DownloadInterval > 0 {
		limit = rate.Every(opts.DownloadInterval)
	}
	return &HTTPSource{opts: opts, client: client, limiter: rate.NewLimiter(limit, 1)}
}

func (s *HTTPSource) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Discover collects the archive links of the history page: anchors pointing at the archive host
// or ending in .zip, resolved against the page URL.
func (s *HTTPSource) Discover(ctx context.Context) ([]string, error) {
	body, err := s.get(ctx, s.opts.PageURL)
	if err != nil {
		return nil, &RetrievalError{Location: s.opts.PageURL, Err: err}
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &RetrievalError{Location: s.opts.PageURL, Err: fmt.Errorf("parse page: %w", err)}
	}
	return archiveLinks(doc, s.opts.PageURL)
}

func archiveLinks(doc *goquery.Document, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("page url: %w", err)
	}
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, archiveHost) && !strings.HasSuffix(strings.ToLower(href), ".zip") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})
	sort.Strings(links)
	return links, nil
}

// Fetch downloads one archive and unpacks its CSV.
func (s *HTTPSource) Fetch(ctx context.Context, location string) (*Batch, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &RetrievalError{Location: location, Err: fmt.Errorf("rate limiter: %w", err)}
	}
	body, err := s.get(ctx, location)
	if err != nil {
		return nil, &RetrievalError{Location: location, Err: err}
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, int64(maxArchiveBytes)+1))
	if err != nil {
		return nil, &RetrievalError{Location: location, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > maxArchiveBytes {
		return nil, &RetrievalError{Location: location, Err: fmt.Errorf("archive larger than %d bytes", maxArchiveBytes)}
	}
	b, err := readArchive(data, location, s.opts.DatasetDir)
	if err != nil {
		return nil, &RetrievalError{Location: location, Err: err}
	}
	return b, nil
}
