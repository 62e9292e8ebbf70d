package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igresolver/pkg/config"
	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/materialize"
	"igresolver/pkg/media"
	"igresolver/pkg/resolver"
	"igresolver/pkg/session"
)

type fakeResolver struct {
	info  *resolver.PostInfo
	asset *materialize.Asset
	err   error
}

func (f *fakeResolver) PostInfo(ctx context.Context, rawURL string) (*resolver.PostInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func (f *fakeResolver) DownloadPost(ctx context.Context, rawURL string) (*materialize.Asset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.asset, nil
}

type fakeSession struct {
	state       session.State
	identity    string
	identityErr error
}

func (f *fakeSession) State() session.State { return f.state }

func (f *fakeSession) CurrentIdentity(ctx context.Context) (string, error) {
	return f.identity, f.identityErr
}

func newTestServer(res PostResolver, sess SessionReporter) *Server {
	return New(&config.ServerConfig{Addr: ":0"}, res, sess, nil)
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthAnonymous(t *testing.T) {
	s := newTestServer(&fakeResolver{}, &fakeSession{})

	rec := doJSON(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.SessionLoaded)
	assert.Nil(t, resp.LoggedAs)
}

func TestHealthAuthenticated(t *testing.T) {
	s := newTestServer(&fakeResolver{}, &fakeSession{
		state:    session.State{Authenticated: true, Username: "alice"},
		identity: "alice",
	})

	rec := doJSON(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.SessionLoaded)
	require.NotNil(t, resp.LoggedAs)
	assert.Equal(t, "alice", *resp.LoggedAs)
}

func TestHealthStaleSessionStaysHealthy(t *testing.T) {
	// An expired session must not break the endpoint; it only nulls logged_as.
	s := newTestServer(&fakeResolver{}, &fakeSession{
		state:       session.State{Authenticated: true, Username: "alice"},
		identityErr: igerrors.New(igerrors.TypeAuth, "session expired"),
	})

	rec := doJSON(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.SessionLoaded)
	assert.Nil(t, resp.LoggedAs)
}

func TestPostInfoSuccess(t *testing.T) {
	s := newTestServer(&fakeResolver{info: &resolver.PostInfo{
		Shortcode:     "ABC123",
		OwnerUsername: "alice",
		Caption:       "hello",
		SlidesCount:   2,
		IsCarousel:    true,
		Media: []media.Descriptor{
			{Index: 0, MediaURL: "https://cdn.example/0.jpg"},
			{Index: 1, IsVideo: true, MediaURL: "https://cdn.example/1.mp4"},
		},
		MediaURL: "https://cdn.example/0.jpg",
	}}, &fakeSession{})

	rec := doJSON(s, http.MethodPost, "/post_info", `{"url": "https://www.instagram.com/p/ABC123/"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ABC123", resp["shortcode"])
	assert.Equal(t, "alice", resp["owner_username"])
	assert.Equal(t, true, resp["is_carousel"])
	assert.Equal(t, "https://cdn.example/0.jpg", resp["media_url"])
	assert.Len(t, resp["media"], 2)
}

func TestPostInfoMissingURL(t *testing.T) {
	s := newTestServer(&fakeResolver{}, &fakeSession{})

	for _, body := range []string{``, `{}`, `{"url": ""}`, `not json`} {
		rec := doJSON(s, http.MethodPost, "/post_info", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid url", igerrors.New(igerrors.TypeInvalidURL, "no shortcode in url"), http.StatusBadRequest},
		{"not found", igerrors.New(igerrors.TypeNotFound, "post not found"), http.StatusNotFound},
		{"rate limited", igerrors.New(igerrors.TypeRateLimited, "retries exhausted"), http.StatusTooManyRequests},
		{"no media", igerrors.New(igerrors.TypeNoMedia, "no media files found"), http.StatusInternalServerError},
		{"upstream", igerrors.New(igerrors.TypeUpstream, "connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeResolver{err: tt.err}, &fakeSession{})

			rec := doJSON(s, http.MethodPost, "/post_info", `{"url": "https://www.instagram.com/p/X/"}`)
			assert.Equal(t, tt.want, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Detail)
		})
	}
}

func TestDownloadPostSingleFile(t *testing.T) {
	s := newTestServer(&fakeResolver{asset: &materialize.Asset{
		Bytes:    []byte("jpeg-bytes"),
		MIMEType: "image/jpeg",
		Filename: "ABC123_0.jpg",
	}}, &fakeSession{})

	rec := doJSON(s, http.MethodPost, "/download_post", `{"url": "https://www.instagram.com/p/ABC123/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="ABC123_0.jpg"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
}

func TestDownloadPostCarouselZip(t *testing.T) {
	s := newTestServer(&fakeResolver{asset: &materialize.Asset{
		Bytes:    []byte("zip-bytes"),
		MIMEType: "application/zip",
		Filename: "CAR1.zip",
	}}, &fakeSession{})

	rec := doJSON(s, http.MethodPost, "/download_post", `{"url": "https://www.instagram.com/p/CAR1/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="CAR1.zip"`, rec.Header().Get(echo.HeaderContentDisposition))
}

func TestDownloadPostMissingURL(t *testing.T) {
	s := newTestServer(&fakeResolver{}, &fakeSession{})

	rec := doJSON(s, http.MethodPost, "/download_post", `{"url": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
