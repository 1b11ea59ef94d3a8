package server

import (
	"encoding/json"
	"net/http"

	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/dispatch"
	"github.com/rs/zerolog"
)

// Request payloads.

type openApplicationRequest struct {
	NameOrPath string `json:"nameOrPath"`
}

type openURLRequest struct {
	URL     string `json:"url"`
	Browser string `json:"browser,omitempty"`
}

type resolveRequest struct {
	Chain           []string `json:"chain"`
	ScopeRef        string   `json:"scopeRef,omitempty"`
	Retain          bool     `json:"retain,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`
}

type actRequest struct {
	Ref             string           `json:"ref,omitempty"`
	Chain           []string         `json:"chain,omitempty"`
	Action          dispatch.Request `json:"action"`
	CaseInsensitive bool             `json:"caseInsensitive,omitempty"`
}

type expectRequest struct {
	Chain           []string `json:"chain"`
	Predicate       string   `json:"predicate"`
	Text            string   `json:"text,omitempty"`
	TimeoutMs       int      `json:"timeoutMs,omitempty"`
	PollIntervalMs  int      `json:"pollIntervalMs,omitempty"`
	ScopeRef        string   `json:"scopeRef,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`
}

// Response payloads.

// elementPayload is the wire snapshot of a resolved element. The native
// handle never leaves the server; chained calls use the retained ref.
type elementPayload struct {
	Role       string            `json:"role"`
	Name       string            `json:"name"`
	Bounds     core.Bounds       `json:"bounds"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Visible    bool              `json:"visible"`
	Enabled    bool              `json:"enabled"`
}

func toPayload(el *core.Element) elementPayload {
	return elementPayload{
		Role:       el.Role,
		Name:       el.Name,
		Bounds:     el.Bounds,
		Attributes: el.Attributes,
		Visible:    el.Visible,
		Enabled:    el.Enabled,
	}
}

type resolveResponse struct {
	Ref     string         `json:"ref,omitempty"`
	Element elementPayload `json:"element"`
}

// errorResponse is the wire error shape. Clients branch on status and
// code, never on message text.
type errorResponse struct {
	Status        int    `json:"status"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	SelectorIndex *int   `json:"selectorIndex,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error onto the wire: InvalidSelector and bad
// requests as 400, ElementNotFound as 404, Timeout as 408, stale/platform
// failures as 500-class.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	api := core.AsApiError(err)
	log.Debug().
		Str("code", api.Code).
		Int("status", api.StatusCode).
		Err(err).
		Msg("request failed")

	writeJSON(w, api.StatusCode, errorResponse{
		Status:        api.StatusCode,
		Code:          api.Code,
		Message:       api.Error(),
		SelectorIndex: api.SelectorIndex,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.ErrBadRequest.WithCause(err).WithMessage("invalid request body: %v", err)
	}
	return nil
}
