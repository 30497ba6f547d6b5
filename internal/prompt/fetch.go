package prompt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dudesk/dudesk-chat/internal/pkg/httpx"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

const maxReferenceBytes = 16 << 20

// ObjectReader opens gs:// objects.
type ObjectReader interface {
	DownloadFile(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Fetcher downloads reference file bytes. Results are cached for TTL and
// concurrent fetches of the same URI share one download.
type Fetcher struct {
	log     *logger.Logger
	http    *http.Client
	objects ObjectReader
	ttl     time.Duration
	retry   httpx.RetryPolicy
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]cached
}

type cached struct {
	data      []byte
	fetchedAt time.Time
}

type FetcherOptions struct {
	HTTPClient *http.Client
	Objects    ObjectReader
	TTL        time.Duration
	MaxRetries int
}

func NewFetcher(log *logger.Logger, opts FetcherOptions) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Fetcher{
		log:     log.With("service", "ReferenceFetcher"),
		http:    hc,
		objects: opts.Objects,
		ttl:     opts.TTL,
		retry: httpx.RetryPolicy{
			MaxRetries: opts.MaxRetries,
			Initial:    250 * time.Millisecond,
			Max:        4 * time.Second,
		},
		now:   time.Now,
		cache: map[string]cached{},
	}
}

// Fetch returns the bytes behind ref.URI.
func (f *Fetcher) Fetch(ctx context.Context, ref FileRef) ([]byte, error) {
	key := strings.TrimSpace(ref.URI)
	if data, ok := f.lookup(key); ok {
		return data, nil
	}
	v, err, shared := f.group.Do(key, func() (any, error) {
		if data, ok := f.lookup(key); ok {
			return data, nil
		}
		start := time.Now()
		data, err := f.download(ctx, key)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cache[key] = cached{data: data, fetchedAt: f.now()}
		f.mu.Unlock()
		f.log.Info("reference fetched", "name", ref.Name, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.Name, err)
	}
	if shared {
		f.log.Debug("reference fetch shared", "name", ref.Name)
	}
	return v.([]byte), nil
}

// FetchAll fetches refs in order and stops at the first failure.
func (f *Fetcher) FetchAll(ctx context.Context, refs []FileRef) ([][]byte, error) {
	out := make([][]byte, len(refs))
	for i, r := range refs {
		data, err := f.Fetch(ctx, r)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func (f *Fetcher) lookup(key string) ([]byte, bool) {
	if f.ttl <= 0 {
		return nil, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.cache[key]
	if !ok || f.now().Sub(c.fetchedAt) > f.ttl {
		return nil, false
	}
	return c.data, true
}

func (f *Fetcher) download(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "gs":
		if f.objects == nil {
			return nil, fmt.Errorf("no object reader configured for %s", raw)
		}
		rc, err := f.objects.DownloadFile(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return readLimited(rc)
	case "http", "https":
		var body []byte
		err := httpx.Retry(ctx, f.retry, func(ctx context.Context) (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
			if err != nil {
				return nil, err
			}
			resp, err := f.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return resp, &httpx.StatusError{Service: "reference", StatusCode: resp.StatusCode, Body: string(snippet)}
			}
			body, err = readLimited(resp.Body)
			return resp, err
		})
		return body, err
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxReferenceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxReferenceBytes {
		return nil, fmt.Errorf("reference exceeds %d bytes", maxReferenceBytes)
	}
	return data, nil
}
