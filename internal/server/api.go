package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/ghostcanvas/pkg/astwriter"
	"github.com/matzehuels/ghostcanvas/pkg/buildinfo"
	"github.com/matzehuels/ghostcanvas/pkg/cache"
	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/materialize"
	"github.com/matzehuels/ghostcanvas/pkg/observability"
	"github.com/matzehuels/ghostcanvas/pkg/render/scenedot"
	"github.com/matzehuels/ghostcanvas/pkg/scene"
	"github.com/matzehuels/ghostcanvas/pkg/session"
	"github.com/matzehuels/ghostcanvas/pkg/source"
	"github.com/matzehuels/ghostcanvas/pkg/synth"
)

type ctxKey int

const sessionKey ctxKey = 0

func (s *Server) withSession(id func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := s.sessions.Get(id(r))
			if err != nil {
				s.writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
		})
	}
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey).(*session.Session)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess.ID == s.defaultSession {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "the default session cannot be closed"))
		return
	}
	if err := s.sessions.Close(r.Context(), sess.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, sessionFrom(r).Scene.Snapshot())
}

func (s *Server) handleSceneDiagram(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r).Scene.Snapshot()
	format := chi.URLParam(r, "format")
	detailed := r.URL.Query().Get("detailed") == "true"
	dot := scenedot.ToDOT(snap, scenedot.Options{Detailed: detailed})

	if format == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		_, _ = w.Write([]byte(dot))
		return
	}

	key := s.keyer.ArtifactKey(snap.Hash(), cache.ArtifactKeyOpts{Format: format, Detailed: detailed})
	svg, hit, err := s.cache.Get(r.Context(), key)
	if err == nil && hit {
		observability.Cache().OnCacheHit(r.Context(), "artifact")
	} else {
		observability.Cache().OnCacheMiss(r.Context(), "artifact")
		if svg, err = scenedot.RenderSVG(dot); err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "render scene"))
			return
		}
		if err := s.cache.Set(r.Context(), key, svg, cache.TTLArtifact); err != nil {
			s.logger.Warn("artifact cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(r.Context(), "artifact", len(svg))
		}
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var n scene.Node
	if !s.decode(w, r, &n) {
		return
	}
	id, err := sessionFrom(r).Scene.AddNode(n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	node, _ := sessionFrom(r).Scene.Node(id)
	s.writeJSON(w, http.StatusCreated, node)
}

// patchRequest is the JSON form of scene.Patch.
type patchRequest struct {
	X          *float64          `json:"x"`
	Y          *float64          `json:"y"`
	Width      *float64          `json:"width"`
	Height     *float64          `json:"height"`
	ParentID   *string           `json:"parentId"`
	Component  *string           `json:"component"`
	ImportPath *string           `json:"importPath"`
	Text       *string           `json:"text"`
	Props      map[string]string `json:"props"`
	Style      map[string]string `json:"style"`
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var p patchRequest
	if !s.decode(w, r, &p) {
		return
	}
	store := sessionFrom(r).Scene
	id := chi.URLParam(r, "nodeID")
	err := store.UpdateNode(id, scene.Patch{
		X: p.X, Y: p.Y, Width: p.Width, Height: p.Height,
		ParentID:   p.ParentID,
		Component:  p.Component,
		ImportPath: p.ImportPath,
		Text:       p.Text,
		Props:      p.Props,
	})
	if err == nil && p.Style != nil {
		err = store.SetStyle(id, p.Style)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	node, _ := store.Node(id)
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).Scene.RemoveNode(chi.URLParam(r, "nodeID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLayout(w http.ResponseWriter, r *http.Request) {
	var l *scene.Layout
	if !s.decode(w, r, &l) {
		return
	}
	store := sessionFrom(r).Scene
	id := chi.URLParam(r, "nodeID")
	if err := store.SetLayout(id, l); err != nil {
		s.writeError(w, err)
		return
	}
	node, _ := store.Node(id)
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	store := sessionFrom(r).Scene
	if err := store.SelectMany(req.IDs); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, store.Selection())
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Layout *scene.Layout `json:"layout"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	var opts []scene.GroupOption
	if req.Layout != nil {
		opts = append(opts, scene.WithLayout(*req.Layout))
	}
	id, ok := sessionFrom(r).Scene.GroupSelection(opts...)
	s.writeJSON(w, http.StatusOK, map[string]any{"grouped": ok, "id": id})
}

func (s *Server) handleUngroup(w http.ResponseWriter, r *http.Request) {
	children, ok := sessionFrom(r).Scene.UngroupNode(chi.URLParam(r, "nodeID"))
	s.writeJSON(w, http.StatusOK, map[string]any{"ungrouped": ok, "children": children})
}

func (s *Server) handleSynth(w http.ResponseWriter, r *http.Request) {
	code, err := synth.Synthesize(sessionFrom(r).Scene.Snapshot(), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	var req materialize.Request
	if !s.decode(w, r, &req) {
		return
	}
	res, err := sessionFrom(r).Materialize(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type reorderRequest struct {
	Source    source.Location `json:"source"`
	Direction string          `json:"direction"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !s.decode(w, r, &req) {
		return
	}
	dir, err := astwriter.ParseDirection(req.Direction)
	if err != nil {
		s.writeError(w, err)
		return
	}
	loc, err := sessionFrom(r).Reorder(r.Context(), req.Source, dir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"source": loc})
}

func (s *Server) handleToggles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Inspection *bool `json:"inspection"`
		FlowMode   *bool `json:"flowMode"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	host := sessionFrom(r).Host
	if req.Inspection != nil {
		host.SetInspection(*req.Inspection)
	}
	if req.FlowMode != nil {
		host.SetFlowMode(*req.FlowMode)
	}
	inspection, flow := host.Toggles()
	s.writeJSON(w, http.StatusOK, map[string]bool{"inspection": inspection, "flowMode": flow})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Route string `json:"route"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res := <-sessionFrom(r).NavigateTo(r.Context(), req.Route)
	s.writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// Encoding
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

type errorBody struct {
	Code          errors.Code `json:"code"`
	Message       string      `json:"message"`
	Informational bool        `json:"informational,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]errorBody{"error": {
		Code:          code,
		Message:       errors.UserMessage(err),
		Informational: errors.IsInformational(err),
	}})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeParseFailure:
		return http.StatusBadRequest
	case errors.ErrCodeNodeNotFound, errors.ErrCodeSessionNotFound,
		errors.ErrCodeFileNotFound, errors.ErrCodeSourceNotFound, errors.ErrCodeFrameNotFound:
		return http.StatusNotFound
	case errors.ErrCodeStaleSourceLocation, errors.ErrCodeInvariantViolation:
		return http.StatusConflict
	case errors.ErrCodeNoSiblingInDirection, errors.ErrCodeNonReorderableContext:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case errors.ErrCodeProtocolTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
