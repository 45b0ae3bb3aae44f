package filtering

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aetherbrowser/aether/internal/logging"
)

const (
	listDirPerm  = 0o755
	listFilePerm = 0o644

	downloadTimeout        = 60 * time.Second
	maxConcurrentDownloads = 4
	versionsFileName       = "versions.json"
	userAgent              = "Aether/1.0 Filter Updater"
)

// ListSource names a remote blocklist and where to fetch it.
type ListSource struct {
	Name string
	URL  string
}

// FileName is the local file name the list is stored under.
func (s ListSource) FileName() string {
	return s.Name + ".txt"
}

// DefaultSources are the lists the browser ships with.
func DefaultSources() []ListSource {
	return []ListSource{
		{Name: "easylist", URL: "https://easylist.to/easylist/easylist.txt"},
		{Name: "easyprivacy", URL: "https://easylist.to/easylist/easyprivacy.txt"},
	}
}

// DownloadProgress reports download progress.
type DownloadProgress struct {
	File    string
	Current int
	Total   int
}

// DownloadResult is the outcome for a single list.
type DownloadResult struct {
	Source  ListSource
	Path    string
	Updated bool // false when the server reported the list unchanged
	Bytes   int64
	Err     error
}

// Downloader fetches blocklists into a local directory so they can be
// loaded as rule sources.
type Downloader struct {
	dir        string
	sources    []ListSource
	httpClient *http.Client
	versions   *VersionStore
}

// NewDownloader creates a Downloader storing lists under dir.
func NewDownloader(dir string, sources []ListSource) *Downloader {
	return &Downloader{
		dir:     dir,
		sources: sources,
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		versions: NewVersionStore(filepath.Join(dir, versionsFileName)),
	}
}

// Paths returns the local list paths in source order. Files are not
// required to exist.
func (d *Downloader) Paths() []string {
	paths := make([]string, 0, len(d.sources))
	for _, src := range d.sources {
		paths = append(paths, filepath.Join(d.dir, src.FileName()))
	}
	return paths
}

// Versions exposes the stored list versions.
func (d *Downloader) Versions() *VersionStore {
	return d.versions
}

// Download fetches every source. A failing list does not stop the others;
// its error is reported in the matching DownloadResult. The returned error
// is only set when the target directory cannot be prepared.
func (d *Downloader) Download(ctx context.Context, onProgress func(DownloadProgress)) ([]DownloadResult, error) {
	log := logging.Component(ctx, "filter-downloader")

	if err := os.MkdirAll(d.dir, listDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create list dir: %w", err)
	}

	results := make([]DownloadResult, len(d.sources))
	var (
		progressMu sync.Mutex
		done       int
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentDownloads)

	for i, src := range d.sources {
		g.Go(func() error {
			res := d.fetch(ctx, src)
			results[i] = res

			if res.Err != nil {
				log.Error().Err(res.Err).Str("list", src.Name).Msg("failed to download list")
			} else {
				log.Debug().
					Str("list", src.Name).
					Bool("updated", res.Updated).
					Int64("bytes", res.Bytes).
					Msg("list fetched")
			}

			if onProgress != nil {
				progressMu.Lock()
				done++
				onProgress(DownloadProgress{File: src.FileName(), Current: done, Total: len(d.sources)})
				progressMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	updated := 0
	for _, res := range results {
		if res.Err == nil && res.Updated {
			updated++
		}
	}
	log.Info().Int("lists", len(results)).Int("updated", updated).Msg("list download complete")

	return results, nil
}

func (d *Downloader) fetch(ctx context.Context, src ListSource) DownloadResult {
	localPath := filepath.Join(d.dir, src.FileName())
	res := DownloadResult{Source: src, Path: localPath}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, http.NoBody)
	if err != nil {
		res.Err = fmt.Errorf("failed to create request: %w", err)
		return res
	}
	req.Header.Set("User-Agent", userAgent)

	prev, hasPrev := d.versions.Get(src.URL)
	if hasPrev && fileExists(localPath) {
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
		if prev.LastModified != "" {
			req.Header.Set("If-Modified-Since", prev.LastModified)
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrNetworkError, err)
		return res
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return res
	case http.StatusOK:
	default:
		res.Err = fmt.Errorf("%w: %s returned status %d", ErrNetworkError, src.URL, resp.StatusCode)
		return res
	}

	n, sum, err := writeAtomic(localPath, resp.Body)
	if err != nil {
		res.Err = err
		return res
	}
	res.Updated = true
	res.Bytes = n

	version := SourceVersion{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		SHA256:       sum,
		Size:         n,
		FetchedAt:    time.Now(),
	}
	if err := d.versions.Set(src.URL, version); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("list", src.Name).Msg("failed to record list version")
	}

	return res
}

// writeAtomic streams r into a temp file next to path, then renames it.
func writeAtomic(path string, r io.Reader) (int64, string, error) {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create temp file: %w", err)
	}

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(file, hash), r)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return 0, "", fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return n, hex.EncodeToString(hash.Sum(nil)), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
