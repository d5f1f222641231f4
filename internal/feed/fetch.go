package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"

	appLog "schoolcal/internal/log"
)

// Source is one remote feed.
type Source struct {
	ID  string
	URL string
}

// FetchResult is the body of a feed, fresh or cached.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads feeds with conditional requests and keeps the last
// good body in a cache directory.
type Fetcher struct {
	client   *http.Client
	fs       afero.Fs
	cacheDir string
	attempts uint
}

// NewFetcher caches under cacheDir on fsys. A nil fsys uses the OS filesystem.
func NewFetcher(fsys afero.Fs, cacheDir string) *Fetcher {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		fs:       fsys,
		cacheDir: cacheDir,
		attempts: 3,
	}
}

// WithClient swaps the HTTP client.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll fetches each source in turn. Failures are logged and collected;
// results only hold sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			appLog.Error("feed fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne honours ETag and Last-Modified. On network errors or non-OK
// statuses the cached body is returned when one exists.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, ErrEmptySource
	}
	cachePath := f.cachePathForURL(src.URL)
	if err := f.fs.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := afero.ReadFile(f.fs, filepath.Join(cachePath, "body"))

	cached := func(reason string, err error) (FetchResult, error) {
		appLog.Error("feed fetch "+reason+", using cached body", err, "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
	}

	appLog.Info("feed fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.do(ctx, src.URL, meta)
	if err != nil {
		if len(cachedBody) > 0 {
			return cached("network error", err)
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, err
		}
		next := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, next, body); err != nil {
			appLog.Error("feed cache save failed", err, "id", src.ID)
		}
		appLog.Info("feed fetch success", "id", src.ID, "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, ErrNoCachedBody
		}
		appLog.Info("feed not modified; using cache", "id", src.ID)
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		statusErr := errors.New(resp.Status)
		if len(cachedBody) > 0 {
			return cached("non-OK", statusErr)
		}
		return FetchResult{}, statusErr
	}
}

// do sends the conditional GET, retrying transport errors and 5xx replies.
func (f *Fetcher) do(ctx context.Context, rawURL string, meta cacheEntry) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if meta.ETag != "" {
				req.Header.Set("If-None-Match", meta.ETag)
			}
			if meta.LastModified != "" {
				req.Header.Set("If-Modified-Since", meta.LastModified)
			}
			r, err := f.client.Do(req)
			if err != nil {
				return err
			}
			if r.StatusCode >= 500 {
				r.Body.Close()
				return errors.New(r.Status)
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	return resp, err
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := afero.ReadFile(f.fs, filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := afero.WriteFile(f.fs, filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(f.fs, filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "feed://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
