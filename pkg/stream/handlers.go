package stream

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/live"
)

// CreateRequest is the body of POST /sets.
type CreateRequest struct {
	Selector string `json:"selector"`

	// Scope names the node the set is restricted to, in the forms accepted
	// by Resolve. Empty means the whole document.
	Scope string `json:"scope,omitempty"`
}

// MutationResult is the body returned by POST /mutations.
type MutationResult struct {
	Applied int `json:"applied"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// do runs fn on the loop goroutine.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := s.loop.Do(r.Context(), fn); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.Newf(errors.CategoryAPI, "registry unavailable").Wrap(err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var stats live.Stats
	if !s.do(w, r, func() { stats = s.reg.Stats() }) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  stats,
	})
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	var infos []SetInfo
	ok := s.do(w, r, func() {
		infos = make([]SetInfo, 0)
		for _, set := range s.reg.Sets() {
			infos = append(infos, infoOf(set))
		}
	})
	if ok {
		s.writeJSON(w, http.StatusOK, infos)
	}
}

func (s *Server) handleCreateSet(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("L031").WithDetail("invalid request body").Wrap(err))
		return
	}
	if req.Selector == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("L031").WithDetail("missing selector"))
		return
	}

	var (
		info SetInfo
		err  error
	)
	ok := s.do(w, r, func() {
		scope := live.Document()
		if req.Scope != "" {
			root, rerr := Resolve(s.reg.Document(), req.Scope)
			if rerr != nil {
				err = rerr
				return
			}
			scope = live.In(root)
		}
		info = infoOf(s.reg.Select(scope, req.Selector, nil))
	})
	if !ok {
		return
	}
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Info("set opened", "set", info.ID, "selector", info.Selector, "scope", info.Scope)
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		snap  Snapshot
		found bool
	)
	ok := s.do(w, r, func() {
		var set *live.Set
		if set, found = s.reg.Lookup(id); found {
			snap = TakeSnapshot(set, set.Nodes())
		}
	})
	if !ok {
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, unknownSet(id))
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var found bool
	ok := s.do(w, r, func() {
		var set *live.Set
		if set, found = s.reg.Lookup(id); found {
			set.Dispose()
		}
	})
	if !ok {
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, unknownSet(id))
		return
	}
	s.logger.Info("set disposed", "set", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMutations(w http.ResponseWriter, r *http.Request) {
	var muts []Mutation
	if err := s.decode(w, r, &muts); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("L031").WithDetail("invalid request body").Wrap(err))
		return
	}

	var (
		applied int
		err     error
	)
	ok := s.do(w, r, func() {
		applied, err = Apply(s.reg.Document(), muts)
		s.reg.Flush()
	})
	if !ok {
		return
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Code(err) == "L032" {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MutationResult{Applied: applied})
}

func unknownSet(id string) *errors.Error {
	return errors.New("L030").WithDetailf("set %q", id)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	e := errors.FromError(err, "")
	body := errorBody{Code: e.Code, Message: e.Message, Detail: e.Detail}
	if e.Wrapped != nil && body.Detail == "" {
		body.Detail = e.Wrapped.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]errorBody{"error": body})
}
