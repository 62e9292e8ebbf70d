// Package resolver composes the resolution pipeline: URL to shortcode,
// rate-limited fetch, media enumeration, and optional materialization.
package resolver

import (
	"context"
	"time"

	"igresolver/pkg/fetcher"
	"igresolver/pkg/logger"
	"igresolver/pkg/materialize"
	"igresolver/pkg/media"
	"igresolver/pkg/shortcode"
)

// PostInfo is the flattened post metadata returned by the info endpoint.
// MediaURL duplicates the first item's URL for callers of the pre-carousel
// response shape.
type PostInfo struct {
	Shortcode     string             `json:"shortcode"`
	OwnerUsername string             `json:"owner_username"`
	Caption       string             `json:"caption"`
	IsVideo       bool               `json:"is_video"`
	DateUTC       string             `json:"date_utc"`
	Likes         int                `json:"likes"`
	Comments      int                `json:"comments"`
	SlidesCount   int                `json:"slides_count"`
	IsCarousel    bool               `json:"is_carousel"`
	Media         []media.Descriptor `json:"media"`
	MediaURL      string             `json:"media_url"`
}

// Resolver runs the pipeline for one request at a time; it holds no
// per-request state.
type Resolver struct {
	fetcher      *fetcher.Fetcher
	materializer *materialize.Materializer
	logger       logger.Logger
}

// New creates a Resolver.
func New(f *fetcher.Fetcher, m *materialize.Materializer, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{
		fetcher:      f,
		materializer: m,
		logger:       log,
	}
}

// PostInfo resolves a post URL to its flattened metadata and media list.
func (r *Resolver) PostInfo(ctx context.Context, rawURL string) (*PostInfo, error) {
	code, err := shortcode.Extract(rawURL)
	if err != nil {
		return nil, err
	}

	post, err := r.fetcher.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}

	items, err := media.Enumerate(post)
	if err != nil {
		return nil, err
	}

	r.logger.InfoWithFields("post resolved", map[string]interface{}{
		"shortcode": code,
		"owner":     post.Owner.Username,
		"items":     len(items),
	})

	return &PostInfo{
		Shortcode:     code,
		OwnerUsername: post.Owner.Username,
		Caption:       post.Caption(),
		IsVideo:       post.IsVideo,
		DateUTC:       post.TakenAt().Format(time.RFC3339),
		Likes:         post.LikeCount(),
		Comments:      post.CommentCount(),
		SlidesCount:   post.MediaCount(),
		IsCarousel:    post.IsSidecar(),
		Media:         items,
		MediaURL:      items[0].MediaURL,
	}, nil
}

// DownloadPost resolves a post URL and materializes its media into a
// single-file or zip asset.
func (r *Resolver) DownloadPost(ctx context.Context, rawURL string) (*materialize.Asset, error) {
	code, err := shortcode.Extract(rawURL)
	if err != nil {
		return nil, err
	}

	post, err := r.fetcher.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}

	items, err := media.Enumerate(post)
	if err != nil {
		return nil, err
	}

	return r.materializer.Materialize(ctx, code, items)
}
