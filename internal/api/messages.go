package api

import (
	"errors"
	"net/http"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/pkg/httputil"
	"github.com/ignite/engage/internal/service/delivery"
)

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.logs.ListLogs(r.Context(), ownerID(r))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"logs": logs})
}

// handleDeliveryReceipt applies a vendor delivery receipt: the callback
// carries the message ID and the final verdict for it.
func (s *Server) handleDeliveryReceipt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MessageID     string `json:"message_id"`
		Status        string `json:"status"`
		FailureReason string `json:"failure_reason"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.MessageID == "" {
		httputil.BadRequest(w, "message_id is required")
		return
	}
	status := domain.DeliveryStatus(body.Status)
	if status != domain.DeliverySent && status != domain.DeliveryFailed {
		httputil.BadRequest(w, "status must be SENT or FAILED")
		return
	}

	if err := s.logs.UpdateLogStatus(r.Context(), ownerID(r), body.MessageID, status, body.FailureReason); err != nil {
		if errors.Is(err, delivery.ErrLogNotFound) {
			httputil.NotFound(w, "no log entry for message")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "updated"})
}
