package instagram

import "time"

// sidecarTypename marks a multi-item (carousel) post in GraphQL responses.
const sidecarTypename = "GraphSidecar"

// Post is the GraphQL shortcode_media node for a single post.
type Post struct {
	Typename         string `json:"__typename"`
	ID               string `json:"id"`
	Shortcode        string `json:"shortcode"`
	DisplayURL       string `json:"display_url"`
	VideoURL         string `json:"video_url"`
	IsVideo          bool   `json:"is_video"`
	TakenAtTimestamp int64  `json:"taken_at_timestamp"`

	Owner                    Owner            `json:"owner"`
	EdgeMediaToCaption       captionEdges     `json:"edge_media_to_caption"`
	EdgeMediaPreviewLike     countField       `json:"edge_media_preview_like"`
	EdgeMediaToParentComment countField       `json:"edge_media_to_parent_comment"`
	EdgeSidecarToChildren    *sidecarChildren `json:"edge_sidecar_to_children"`
}

// Owner is the posting account.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type captionEdges struct {
	Edges []struct {
		Node struct {
			Text string `json:"text"`
		} `json:"node"`
	} `json:"edges"`
}

type countField struct {
	Count int `json:"count"`
}

type sidecarChildren struct {
	Edges []sidecarEdge `json:"edges"`
}

type sidecarEdge struct {
	Node SidecarNode `json:"node"`
}

// SidecarNode is one item of a carousel post.
type SidecarNode struct {
	Typename   string `json:"__typename"`
	ID         string `json:"id"`
	DisplayURL string `json:"display_url"`
	VideoURL   string `json:"video_url"`
	IsVideo    bool   `json:"is_video"`
}

// IsSidecar reports whether the post is a multi-item carousel.
func (p *Post) IsSidecar() bool {
	return p.Typename == sidecarTypename
}

// Caption returns the post caption, or the empty string when there is none.
func (p *Post) Caption() string {
	if len(p.EdgeMediaToCaption.Edges) == 0 {
		return ""
	}
	return p.EdgeMediaToCaption.Edges[0].Node.Text
}

// TakenAt returns the post creation time in UTC.
func (p *Post) TakenAt() time.Time {
	return time.Unix(p.TakenAtTimestamp, 0).UTC()
}

// LikeCount returns the like count reported by the platform.
func (p *Post) LikeCount() int {
	return p.EdgeMediaPreviewLike.Count
}

// CommentCount returns the top-level comment count.
func (p *Post) CommentCount() int {
	return p.EdgeMediaToParentComment.Count
}

// SidecarNodes returns the carousel items in platform-returned order.
func (p *Post) SidecarNodes() []SidecarNode {
	if p.EdgeSidecarToChildren == nil {
		return nil
	}
	nodes := make([]SidecarNode, 0, len(p.EdgeSidecarToChildren.Edges))
	for _, edge := range p.EdgeSidecarToChildren.Edges {
		nodes = append(nodes, edge.Node)
	}
	return nodes
}

// MediaCount returns the number of carousel items, or 1 for a single post.
func (p *Post) MediaCount() int {
	if p.IsSidecar() && p.EdgeSidecarToChildren != nil {
		return len(p.EdgeSidecarToChildren.Edges)
	}
	return 1
}

// postResponse is the envelope of the shortcode_media GraphQL query. The
// platform also returns status "fail" with a message on throttling.
type postResponse struct {
	Data struct {
		ShortcodeMedia *Post `json:"shortcode_media"`
	} `json:"data"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// viewerResponse is the envelope of the current_user endpoint.
type viewerResponse struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Status string `json:"status"`
}
