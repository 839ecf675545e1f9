package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fetchTimeout     = 15 * time.Second
	maxCalendarBytes = 16 << 20
	cacheDirMode     = 0o700
	cacheFileMode    = 0o600
)

// fetcher reads calendar sources. Remote sources are fetched with conditional requests and the
// last good body is kept on disk so a network failure still answers from the cache.
type fetcher struct {
	client   *http.Client
	cacheDir string
}

func (f *fetcher) load(ctx context.Context, source string) ([]byte, error) {
	if !isRemote(source) {
		body, err := os.ReadFile(source)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, fmt.Errorf("read calendar %s: %w", source, err)
		}
		return body, nil
	}

	return f.fetch(ctx, source)
}

func (f *fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	bodyPath, etagPath := f.cachePaths(url)
	cached, cacheErr := readCache(bodyPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build calendar request: %w", err)
	}
	if cacheErr == nil && etagPath != "" {
		if etag, err := os.ReadFile(etagPath); err == nil && len(etag) > 0 {
			req.Header.Set("If-None-Match", string(etag))
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if cacheErr == nil && ctx.Err() == nil {
			return cached, nil
		}
		return nil, fmt.Errorf("fetch calendar %s: %w", redactURL(url), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxCalendarBytes))
		if err != nil {
			return nil, fmt.Errorf("read calendar %s: %w", redactURL(url), err)
		}
		f.saveCache(bodyPath, etagPath, body, resp.Header.Get("ETag"))
		return body, nil
	case http.StatusNotModified:
		if cacheErr == nil {
			return cached, nil
		}
		return nil, fmt.Errorf("fetch calendar %s: not modified but nothing cached", redactURL(url))
	default:
		if cacheErr == nil {
			return cached, nil
		}
		return nil, fmt.Errorf("fetch calendar %s: unexpected status %d", redactURL(url), resp.StatusCode)
	}
}

func (f *fetcher) cachePaths(url string) (string, string) {
	if f.cacheDir == "" {
		return "", ""
	}
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:8])

	return filepath.Join(f.cacheDir, name+".ics"), filepath.Join(f.cacheDir, name+".etag")
}

func readCache(path string) ([]byte, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(path)
}

// saveCache is best effort; a failed write only costs a refetch.
func (f *fetcher) saveCache(bodyPath, etagPath string, body []byte, etag string) {
	if bodyPath == "" {
		return
	}
	if err := os.MkdirAll(f.cacheDir, cacheDirMode); err != nil {
		return
	}
	if err := os.WriteFile(bodyPath, body, cacheFileMode); err != nil {
		return
	}
	if etag == "" {
		_ = os.Remove(etagPath)
		return
	}
	_ = os.WriteFile(etagPath, []byte(etag), cacheFileMode)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// redactURL drops the path and query, which often carry a private calendar token.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host + "/..."
}
