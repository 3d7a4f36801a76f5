// Package httpapi exposes the profile service over HTTP with gin.
//
// Routes, relative to the configured base path:
//
//	GET  /settings/:profileId   read settings (bearer, If-None-Match → 304)
//	POST /settings/:profileId   create an unclaimed profile (no auth)
//	PUT  /settings/:profileId   replace settings (bearer, If-None-Match → 412)
//
// Successful responses carry the quoted settings fingerprint in ETag.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/saywhat/internal/common"
	"github.com/dmitrijs2005/saywhat/internal/logging"
	shared "github.com/dmitrijs2005/saywhat/internal/models"
	"github.com/dmitrijs2005/saywhat/internal/server/models"
)

// ProfileService is the part of services.ProfileService the handlers use.
type ProfileService interface {
	Get(ctx context.Context, id, bearer, ifNoneMatch string) (*models.Profile, error)
	Create(ctx context.Context, id string, settings shared.Settings) (*models.Profile, error)
	Replace(ctx context.Context, id, bearer, ifNoneMatch string, settings shared.Settings) (*models.Profile, error)
}

type ProfileHandler struct {
	service ProfileService
	logger  logging.Logger
}

func NewProfileHandler(service ProfileService, logger logging.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/settings/:profileId", h.GetSettings)
	rg.POST("/settings/:profileId", h.PostSettings)
	rg.PUT("/settings/:profileId", h.PutSettings)
}

func (h *ProfileHandler) GetSettings(c *gin.Context) {
	id := c.Param("profileId")
	bearer, ok := h.bearer(c, id)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id, bearer, parseETag(c.GetHeader("If-None-Match")))
	switch {
	case err == nil:
		setETag(c, p)
		c.JSON(http.StatusOK, p.Settings)
	case errors.Is(err, common.ErrNotModified):
		setETag(c, p)
		c.Status(http.StatusNotModified)
	default:
		h.fail(c, "GET", id, err)
	}
}

func (h *ProfileHandler) PostSettings(c *gin.Context) {
	id := c.Param("profileId")

	var settings shared.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
		return
	}

	p, err := h.service.Create(c.Request.Context(), id, settings)
	if err != nil {
		h.fail(c, "POST", id, err)
		return
	}

	h.logger.Info(c.Request.Context(), "profile created", "profile_id", id)
	setETag(c, p)
	c.Status(http.StatusCreated)
}

func (h *ProfileHandler) PutSettings(c *gin.Context) {
	id := c.Param("profileId")
	bearer, ok := h.bearer(c, id)
	if !ok {
		return
	}

	var settings shared.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
		return
	}

	p, err := h.service.Replace(c.Request.Context(), id, bearer, parseETag(c.GetHeader("If-None-Match")), settings)
	switch {
	case err == nil:
		setETag(c, p)
		c.Status(http.StatusNoContent)
	case errors.Is(err, common.ErrPreconditionFailed):
		setETag(c, p)
		c.Status(http.StatusPreconditionFailed)
	default:
		h.fail(c, "PUT", id, err)
	}
}

// bearer extracts the token of a "Bearer <token>" Authorization header.
// A missing header is answered with 401 and a malformed one with 403.
func (h *ProfileHandler) bearer(c *gin.Context, id string) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Header("WWW-Authenticate", fmt.Sprintf(`Bearer realm="%s"`, id))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "provide authorization token"})
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		h.logger.Info(c.Request.Context(), "invalid Authorization header", "profile_id", id)
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid bearer token"})
		return "", false
	}
	return token, true
}

func (h *ProfileHandler) fail(c *gin.Context, method, id string, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, common.ErrorUnauthorized):
		h.logger.Info(c.Request.Context(), "profile credential rejected", "profile_id", id, "method", method)
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid credential"})
	case errors.Is(err, common.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "profile already exists"})
	default:
		h.logger.Error(c.Request.Context(), "profile request failed", "profile_id", id, "method", method, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database failure"})
	}
}

func setETag(c *gin.Context, p *models.Profile) {
	c.Header("ETag", `"`+p.ETag()+`"`)
}

// parseETag strips the weak prefix and quotes of an If-None-Match value.
// Lists of several tags are not supported.
func parseETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
