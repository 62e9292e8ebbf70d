package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/logger"
)

// identityCheckTimeout bounds the live session check so /health stays fast
// even when the upstream is slow.
const identityCheckTimeout = 5 * time.Second

type handler struct {
	resolver PostResolver
	session  SessionReporter
	logger   logger.Logger
}

type postRequest struct {
	URL string `json:"url"`
}

type healthResponse struct {
	Status        string  `json:"status"`
	SessionLoaded bool    `json:"session_loaded"`
	LoggedAs      *string `json:"logged_as"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *handler) register(e *echo.Echo) {
	e.GET("/health", h.health)
	e.POST("/post_info", h.postInfo)
	e.POST("/download_post", h.downloadPost)
}

// health always returns 200. A degraded session shows up as
// session_loaded=false or logged_as=null, never as a failing endpoint.
func (h *handler) health(c echo.Context) error {
	resp := healthResponse{Status: "ok"}

	state := h.session.State()
	resp.SessionLoaded = state.Authenticated

	if state.Authenticated {
		ctx, cancel := context.WithTimeout(c.Request().Context(), identityCheckTimeout)
		defer cancel()

		if username, err := h.session.CurrentIdentity(ctx); err == nil {
			resp.LoggedAs = &username
		} else {
			h.logger.DebugWithFields("live identity check failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) postInfo(c echo.Context) error {
	var req postRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "request body must carry a post url"})
	}

	info, err := h.resolver.PostInfo(c.Request().Context(), req.URL)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, info)
}

func (h *handler) downloadPost(c echo.Context) error {
	var req postRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "request body must carry a post url"})
	}

	asset, err := h.resolver.DownloadPost(c.Request().Context(), req.URL)
	if err != nil {
		return h.writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", asset.Filename))
	return c.Blob(http.StatusOK, asset.MIMEType, asset.Bytes)
}

// writeError translates taxonomy errors into their status codes; anything
// unrecognized becomes a 500 so the process survives individual failures.
func (h *handler) writeError(c echo.Context, err error) error {
	status := igerrors.HTTPStatus(err)

	fields := map[string]interface{}{
		"status": status,
		"type":   string(igerrors.TypeOf(err)),
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorWithFields("request failed", fields)
	} else {
		h.logger.WarnWithFields("request rejected", fields)
	}

	return c.JSON(status, errorResponse{Detail: igerrors.Detail(err)})
}
