// Package downloader provides a bounded worker pool that persists the media
// items of one post into a request-scoped directory.
package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/logger"
	"igresolver/pkg/media"
	"igresolver/pkg/ratelimit"
)

// MediaDownloader fetches the raw bytes behind a media URL.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// result is the outcome of downloading one media item.
type result struct {
	index    int
	path     string
	size     int
	duration time.Duration
	err      error
}

// WorkerPool downloads a post's media items concurrently. Each pool call
// writes only into the directory it is given, so concurrent requests never
// interfere.
type WorkerPool struct {
	numWorkers int
	client     MediaDownloader
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewWorkerPool creates a pool with numWorkers concurrent downloads.
func NewWorkerPool(numWorkers int, client MediaDownloader, limiter ratelimit.Limiter, log logger.Logger) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers: numWorkers,
		client:     client,
		limiter:    limiter,
		logger:     log,
	}
}

// DownloadAll persists every descriptor into dir and returns the written
// file paths in descriptor order. The first failed item fails the call.
func (p *WorkerPool) DownloadAll(ctx context.Context, shortcode string, items []media.Descriptor, dir string) ([]string, error) {
	jobs := make(chan media.Descriptor, len(items))
	results := make(chan result, len(items))

	var wg sync.WaitGroup
	workers := p.numWorkers
	if workers > len(items) {
		workers = len(items)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- p.download(ctx, shortcode, item, dir)
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
	close(results)

	paths := make([]string, len(items))
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		paths[res.index] = res.path
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return paths, nil
}

func (p *WorkerPool) download(ctx context.Context, shortcode string, item media.Descriptor, dir string) result {
	start := time.Now()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return result{index: item.Index, err: igerrors.Wrap(igerrors.TypeUpstream, "download cancelled while pacing", err)}
		}
	}

	data, err := p.client.DownloadMedia(ctx, item.MediaURL)
	if err != nil {
		p.logger.ErrorWithFields("media download failed", map[string]interface{}{
			"shortcode": shortcode,
			"index":     item.Index,
			"error":     err.Error(),
		})
		return result{index: item.Index, err: err}
	}

	filename := fmt.Sprintf("%s_%d%s", shortcode, item.Index, extensionFor(item))
	target := filepath.Join(dir, filename)
	if err := writeFileAtomic(target, data); err != nil {
		return result{index: item.Index, err: igerrors.Wrap(igerrors.TypeUpstream, "failed to persist media", err)}
	}

	p.logger.DebugWithFields("media item persisted", map[string]interface{}{
		"shortcode": shortcode,
		"index":     item.Index,
		"path":      target,
		"size":      len(data),
		"duration":  time.Since(start),
	})

	return result{index: item.Index, path: target, size: len(data), duration: time.Since(start)}
}

// extensionFor derives the file extension from the media URL path, falling
// back to the media type when the URL carries none.
func extensionFor(item media.Descriptor) string {
	if u, err := url.Parse(item.MediaURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return ext
		}
	}
	if item.IsVideo {
		return ".mp4"
	}
	return ".jpg"
}

// writeFileAtomic writes through a temp file and renames, so a failed
// download never leaves a truncated media file for the scanner to pick up.
func writeFileAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
