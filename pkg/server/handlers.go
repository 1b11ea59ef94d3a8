package server

import (
	"net/http"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/expect"
	"github.com/devicelab-dev/uidriver/pkg/selector"
)

func (s *Server) handleOpenApplication(w http.ResponseWriter, r *http.Request) {
	var req openApplicationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.NameOrPath == "" {
		writeError(w, s.log, core.ErrBadRequest.WithMessage("nameOrPath is required"))
		return
	}
	if err := s.launcher.OpenApplication(r.Context(), req.NameOrPath); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.log.Info().Str("app", req.NameOrPath).Msg("application opened")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenURL(w http.ResponseWriter, r *http.Request) {
	var req openURLRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.URL == "" {
		writeError(w, s.log, core.ErrBadRequest.WithMessage("url is required"))
		return
	}
	if err := s.launcher.OpenURL(r.Context(), req.URL, req.Browser); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.log.Info().Str("url", req.URL).Msg("url opened")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	chain, err := selector.ParseChain(req.Chain, matchMode(req.CaseInsensitive))
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	scope, err := s.scopeRef(req.ScopeRef)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	el, err := s.resolver.Resolve(r.Context(), chain, scope)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	resp := resolveResponse{Element: toPayload(el)}
	if req.Retain {
		resp.Ref = s.handles.Put(el.Ref)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	var req actRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}

	el, err := s.targetElement(r, req)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	result, err := s.dispatcher.Do(r.Context(), el, req.Action)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// targetElement resolves the acted-on element, either from a retained
// handle or by running the chain one-shot.
func (s *Server) targetElement(r *http.Request, req actRequest) (*core.Element, error) {
	switch {
	case req.Ref != "" && len(req.Chain) > 0:
		return nil, core.ErrBadRequest.WithMessage("ref and chain are mutually exclusive")
	case req.Ref != "":
		node, err := s.handles.Get(req.Ref)
		if err != nil {
			return nil, err
		}
		return s.resolver.Snapshot(r.Context(), node)
	case len(req.Chain) > 0:
		chain, err := selector.ParseChain(req.Chain, matchMode(req.CaseInsensitive))
		if err != nil {
			return nil, err
		}
		return s.resolver.Resolve(r.Context(), chain, core.NodeRef{})
	default:
		return nil, core.ErrBadRequest.WithMessage("either ref or chain is required")
	}
}

func (s *Server) handleExpect(w http.ResponseWriter, r *http.Request) {
	var req expectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	chain, err := selector.ParseChain(req.Chain, matchMode(req.CaseInsensitive))
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	scope, err := s.scopeRef(req.ScopeRef)
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	spec := expect.Spec{
		Predicate:    expect.Predicate(req.Predicate),
		Text:         req.Text,
		Timeout:      time.Duration(req.TimeoutMs) * time.Millisecond,
		PollInterval: time.Duration(req.PollIntervalMs) * time.Millisecond,
	}
	el, err := s.expecter.Await(r.Context(), chain, scope, spec)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Element: toPayload(el)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) scopeRef(ref string) (core.NodeRef, error) {
	if ref == "" {
		return core.NodeRef{}, nil
	}
	return s.handles.Get(ref)
}

func matchMode(caseInsensitive bool) selector.MatchMode {
	if caseInsensitive {
		return selector.MatchCaseInsensitive
	}
	return selector.MatchExact
}
