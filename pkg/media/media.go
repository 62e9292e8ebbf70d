// Package media turns fetched post metadata into an ordered list of media
// descriptors, one per carousel item.
package media

import (
	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/instagram"
)

// Descriptor identifies one media item of a post. Index order is the
// platform-returned order. MediaURL may be empty when only a local file
// exists, and LocalPath when only a URL exists.
type Descriptor struct {
	Index     int    `json:"index"`
	IsVideo   bool   `json:"is_video"`
	MediaURL  string `json:"media_url"`
	LocalPath string `json:"local_path,omitempty"`
}

// Enumerate lists the media of a fetched post in platform order. The result
// is never empty: a post that yields no media is an upstream anomaly and is
// surfaced as an error, not an empty success.
func Enumerate(post *instagram.Post) ([]Descriptor, error) {
	if post == nil {
		return nil, igerrors.New(igerrors.TypeParsing, "no post metadata to enumerate")
	}

	if post.IsSidecar() {
		nodes := post.SidecarNodes()
		if len(nodes) == 0 {
			return nil, igerrors.Newf(igerrors.TypeParsing, "carousel post %s has no child media", post.Shortcode)
		}

		descriptors := make([]Descriptor, 0, len(nodes))
		for idx, node := range nodes {
			url := node.DisplayURL
			if node.IsVideo {
				url = node.VideoURL
			}
			descriptors = append(descriptors, Descriptor{
				Index:    idx,
				IsVideo:  node.IsVideo,
				MediaURL: url,
			})
		}
		return descriptors, nil
	}

	url := post.DisplayURL
	if post.IsVideo {
		url = post.VideoURL
	}
	if url == "" {
		return nil, igerrors.Newf(igerrors.TypeParsing, "post %s carries no media URL", post.Shortcode)
	}

	return []Descriptor{{
		Index:    0,
		IsVideo:  post.IsVideo,
		MediaURL: url,
	}}, nil
}
