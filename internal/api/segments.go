package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/engage/internal/pkg/httputil"
	"github.com/ignite/engage/internal/service/segments"
)

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	segs, err := s.segments.List(r.Context(), ownerID(r))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"segments": segs})
}

func (s *Server) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	var input segments.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	seg, err := s.segments.Create(r.Context(), ownerID(r), input)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, seg)
}

// handlePreviewSegment evaluates an ad-hoc rule tree and returns only
// the matching-customer count. Nothing is persisted.
func (s *Server) handlePreviewSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rules json.RawMessage `json:"rules"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	count, err := s.segments.Preview(r.Context(), ownerID(r), body.Rules)
	if err != nil {
		if errors.Is(err, segments.ErrInvalidRules) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"count": count})
}

func (s *Server) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := s.segments.Get(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, segments.ErrNotFound) {
			httputil.NotFound(w, "segment not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, seg)
}

func (s *Server) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	var u segments.UpdateFields
	if !httputil.Decode(w, r, &u) {
		return
	}
	seg, err := s.segments.Update(r.Context(), ownerID(r), chi.URLParam(r, "id"), u)
	if err != nil {
		switch {
		case errors.Is(err, segments.ErrNotFound):
			httputil.NotFound(w, "segment not found")
		case errors.Is(err, segments.ErrInvalidRules):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, seg)
}

func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	if err := s.segments.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, segments.ErrNotFound) {
			httputil.NotFound(w, "segment not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (s *Server) handleRefreshSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := s.segments.Refresh(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, segments.ErrNotFound):
			httputil.NotFound(w, "segment not found")
		case errors.Is(err, segments.ErrInvalidRules):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, seg)
}
