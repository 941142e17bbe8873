package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/console-hq/calleval_go_server/internal/pkg/response"
	"github.com/console-hq/calleval_go_server/internal/pkg/webhook"
	"github.com/console-hq/calleval_go_server/internal/service"
)

type WebhookHandler struct {
	intakeService *service.IntakeService
}

func NewWebhookHandler(intakeService *service.IntakeService) *WebhookHandler {
	return &WebhookHandler{
		intakeService: intakeService,
	}
}

// Receive 录音供应商 webhook 入口
// POST /api/v1/webhooks/fathom
func (h *WebhookHandler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	headers, ok := webhook.ParseHeaders(c.GetHeader)
	if !ok {
		response.Unauthorized(c, "missing signature headers")
		return
	}

	// 原始头快照与 raw_body 一起留痕,便于事后重放排查
	headerSnapshot, _ := json.Marshal(map[string]string{
		"webhook-id":        headers.ID,
		"webhook-timestamp": headers.Timestamp,
		"webhook-signature": headers.Signature,
	})

	ev, err := h.intakeService.AdmitWebhook(headers, string(headerSnapshot), rawBody)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			response.Unauthorized(c, "invalid signature")
			return
		}
		log.Printf("Webhook admission failed: %v", err)
		response.ServerError(c, "")
		return
	}

	response.OK(c, gin.H{"ok": true, "event_id": ev.ID})
}
