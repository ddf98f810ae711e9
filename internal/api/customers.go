package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/engage/internal/pkg/httputil"
	"github.com/ignite/engage/internal/service/customer"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	customers, total, err := s.customers.List(r.Context(), ownerID(r), customer.ListFilter{
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"customers": customers, "total": total})
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var input customer.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := s.customers.Create(r.Context(), ownerID(r), input)
	if err != nil {
		if errors.Is(err, customer.ErrDuplicateEmail) {
			httputil.Conflict(w, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, c)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.customers.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			httputil.NotFound(w, "customer not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var u customer.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	c, err := s.customers.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), u)
	if err != nil {
		switch {
		case errors.Is(err, customer.ErrNotFound):
			httputil.NotFound(w, "customer not found")
		case errors.Is(err, customer.ErrDuplicateEmail):
			httputil.Conflict(w, err.Error())
		default:
			httputil.BadRequest(w, err.Error())
		}
		return
	}
	httputil.OK(w, c)
}

// handleRecordVisit logs a storefront session for a customer: visit
// count, spend, and last-active timestamp all move together.
func (s *Server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Spend float64    `json:"spend"`
		At    *time.Time `json:"at"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	at := time.Now()
	if body.At != nil {
		at = *body.At
	}
	c, err := s.customers.RecordVisit(r.Context(), ownerID(r), chi.URLParam(r, "id"), at, body.Spend)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			httputil.NotFound(w, "customer not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.customers.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			httputil.NotFound(w, "customer not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}
