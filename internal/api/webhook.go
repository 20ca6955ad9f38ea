package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/inboxly/inbox-intel/internal/email"
	"github.com/inboxly/inbox-intel/internal/pkg/httputil"
	"github.com/inboxly/inbox-intel/internal/pkg/logger"
	"github.com/inboxly/inbox-intel/internal/postmark"
)

// Postmark inbound payloads are bounded by their 10MB message limit;
// anything bigger is not a legitimate webhook call.
const maxWebhookBody = 25 << 20

type webhookResponse struct {
	EmailID          int64  `json:"email_id,omitempty"`
	RawEmailID       int64  `json:"raw_email_id"`
	MessageID        string `json:"message_id"`
	ProcessingStatus string `json:"processing_status"`
	IsDuplicate      bool   `json:"is_duplicate"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	AttachmentsCount int    `json:"attachments_count"`
}

// InboundWebhook receives a Postmark inbound message, persists it, and
// hands the new email to the extraction pipeline. Duplicates are
// acknowledged with 200 so Postmark stops retrying.
func (h *Handlers) InboundWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "failed to read request body")
		return
	}

	var payload postmark.InboundPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		httputil.Unprocessable(w, "invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), rawBody, &payload)
	if err != nil {
		if errors.Is(err, email.ErrValidation) {
			httputil.Unprocessable(w, err.Error())
			return
		}
		logger.Error("webhook ingestion failed",
			"message_id", payload.MessageID, "error", err.Error())
		httputil.InternalError(w, err)
		return
	}

	resp := webhookResponse{
		RawEmailID:       result.RawEmailID,
		MessageID:        payload.MessageID,
		ProcessingStatus: "processed",
		IsDuplicate:      result.IsDuplicate,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		AttachmentsCount: result.AttachmentsCount,
	}

	if result.IsDuplicate {
		httputil.OK(w, resp)
		return
	}

	resp.EmailID = result.Email.ID
	if h.dispatcher != nil {
		if !h.dispatcher.Enqueue(result.Email.ID) {
			logger.Warn("extraction queue full, email left pending",
				"email_id", result.Email.ID)
		}
	}

	httputil.Created(w, resp)
}
