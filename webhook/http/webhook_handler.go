package http

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/blogsync/blog/application"
	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	deliveryHeader  = "X-GitHub-Delivery"

	SourceSyncRoute      = "/webhook/source-sync"
	CacheInvalidateRoute = "/webhook/cache-invalidate"
)

type WebhookHandler struct {
	webhookSecret []byte
	postService   *application.PostService
	invalidation  *application.InvalidationService
}

func NewWebhookHandler(secret string, postService *application.PostService, invalidation *application.InvalidationService) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret: []byte(secret),
		postService:   postService,
		invalidation:  invalidation,
	}
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST(SourceSyncRoute, h.HandleSourceSync)
	r.POST(CacheInvalidateRoute, h.HandleCacheInvalidate)
}

// HandleSourceSync brings the post store in line with a push.
func (h *WebhookHandler) HandleSourceSync(c *gin.Context) {
	evt, ok := h.verifyAndParse(c)
	if !ok {
		return
	}

	changes, err := h.postService.HandlePushEvent(c.Request.Context(), evt)
	if err != nil {
		log.Error().Err(err).Str("delivery", c.GetHeader(deliveryHeader)).Msg("Failed to sync posts")
		c.String(http.StatusInternalServerError, "Error handling event")
		return
	}

	log.Info().
		Str("delivery", c.GetHeader(deliveryHeader)).
		Int("upserted", len(changes.ToUpsert)).
		Int("removed", len(changes.ToRemove)).
		Msg("Synced posts")
	c.String(http.StatusOK, "OK")
}

// HandleCacheInvalidate marks the index and every changed post page as stale.
// Once the request is verified and parsed the response is always 200.
func (h *WebhookHandler) HandleCacheInvalidate(c *gin.Context) {
	evt, ok := h.verifyAndParse(c)
	if !ok {
		return
	}

	slugs := h.invalidation.HandlePushEvent(c.Request.Context(), evt)
	log.Info().Str("delivery", c.GetHeader(deliveryHeader)).Strs("slugs", slugs).Msg("Invalidated pages")
	c.String(http.StatusOK, "OK")
}

// verifyAndParse checks the signature over the raw body and decodes the push
// event. On failure it writes the response and returns false; nothing else has
// been touched at that point.
func (h *WebhookHandler) verifyAndParse(c *gin.Context) (*domain.PushEvent, bool) {
	payload, err := h.verify(c)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingSignature):
			c.String(http.StatusBadRequest, "Missing signature")
		case errors.Is(err, domain.ErrInvalidSignature):
			c.String(http.StatusForbidden, "Not authorised")
		default:
			c.String(http.StatusBadRequest, "Invalid payload")
		}
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("Rejected webhook")
		return nil, false
	}

	evt, err := domain.ParsePushEvent(payload)
	if err != nil {
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("Rejected webhook")
		c.String(http.StatusBadRequest, "Invalid payload")
		return nil, false
	}

	return evt, true
}

func (h *WebhookHandler) verify(c *gin.Context) ([]byte, error) {
	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		return nil, domain.ErrMissingSignature
	}

	payload, err := c.GetRawData()
	if err != nil {
		return nil, err
	}

	if err := github.ValidateSignature(signature, payload, h.webhookSecret); err != nil {
		return nil, errors.Join(domain.ErrInvalidSignature, err)
	}
	return payload, nil
}
