package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/engage/internal/domain"
	"github.com/ignite/engage/internal/notify"
	"github.com/ignite/engage/internal/pkg/httputil"
	"github.com/ignite/engage/internal/service/campaign"
)

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	campaigns, total, err := s.campaigns.List(r.Context(), ownerID(r), campaign.ListFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"campaigns": campaigns, "total": total})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := s.campaigns.Create(r.Context(), ownerID(r), input)
	if err != nil {
		if errors.Is(err, campaign.ErrSegmentNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, c)
}

// handleGetCampaign is the status poll target. With ?wait=true it holds
// the request and re-checks on the configured polling contract until
// the campaign reports sent or the window expires; either way the last
// observed campaign comes back and the client decides whether to retry.
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	var (
		c   *domain.Campaign
		err error
	)
	if wait := r.URL.Query().Get("wait"); wait == "true" || wait == "1" {
		c, _, err = notify.PollUntilSent(r.Context(), s.campaigns, ownerID(r), chi.URLParam(r, "id"), s.pollInterval, s.pollWindow)
	} else {
		c, err = s.campaigns.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	}
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			httputil.NotFound(w, "campaign not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var u campaign.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	if err := s.campaigns.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), u); err != nil {
		switch {
		case errors.Is(err, campaign.ErrNotFound):
			httputil.NotFound(w, "campaign not found")
		case errors.Is(err, campaign.ErrInvalidTransition):
			httputil.Conflict(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	c, err := s.campaigns.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		switch {
		case errors.Is(err, campaign.ErrNotFound):
			httputil.NotFound(w, "campaign not found")
		case errors.Is(err, campaign.ErrInvalidTransition):
			httputil.Conflict(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.NoContent(w)
}

// handleSendCampaign runs the send synchronously and returns the final
// per-send tally. The status CAS inside the dispatcher turns concurrent
// sends of the same campaign into a 409 for the loser.
func (s *Server) handleSendCampaign(w http.ResponseWriter, r *http.Request) {
	report, err := s.campaigns.Send(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, campaign.ErrNotFound):
			httputil.NotFound(w, "campaign not found")
		case errors.Is(err, campaign.ErrSegmentNotFound):
			httputil.NotFound(w, err.Error())
		case errors.Is(err, campaign.ErrEmptyAudience):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, campaign.ErrAlreadySending):
			httputil.Conflict(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, report)
}

// handlePreviewContent renders campaign content with the rich (Liquid)
// template engine against a sample or stored customer. This is a
// preview aid only; live sends use the pass-through token substituter.
func (s *Server) handlePreviewContent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body       string `json:"body"`
		CustomerID string `json:"customer_id"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	c := domain.Customer{
		Name:       "Jane Cooper",
		Email:      "jane@example.com",
		TotalSpend: 1500,
		Visits:     12,
	}
	if body.CustomerID != "" {
		stored, err := s.customers.Get(r.Context(), ownerID(r), body.CustomerID)
		if err != nil {
			httputil.NotFound(w, "customer not found")
			return
		}
		c = *stored
	}

	rendered, err := s.renderer.Render(body.Body, c)
	if err != nil {
		httputil.BadRequest(w, "template error: "+err.Error())
		return
	}
	httputil.OK(w, map[string]string{"rendered": rendered})
}
