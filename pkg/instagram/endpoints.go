package instagram

import (
	"fmt"
	"net/url"
)

const (
	// PostEndpoint is the GraphQL endpoint serving shortcode_media queries.
	PostEndpoint = "/graphql/query/"

	// PostQueryHash is the query hash for fetching a post by shortcode.
	PostQueryHash = "b3055c01b4b222b8a47dc12b090e4e64"

	// ViewerEndpoint reports the account behind the current session.
	ViewerEndpoint = "/api/v1/accounts/current_user/"
)

// postURL constructs the URL for fetching a post by shortcode.
func postURL(baseURL, shortcode string) string {
	params := url.Values{}
	params.Set("query_hash", PostQueryHash)
	params.Set("variables", fmt.Sprintf(`{"shortcode":%q}`, shortcode))

	return fmt.Sprintf("%s%s?%s", baseURL, PostEndpoint, params.Encode())
}

// viewerURL constructs the URL for the live session identity check.
func viewerURL(baseURL string) string {
	return baseURL + ViewerEndpoint
}
