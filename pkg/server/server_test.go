package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/accessibility"
	"github.com/devicelab-dev/uidriver/pkg/accessibility/memtree"
	"github.com/devicelab-dev/uidriver/pkg/config"
	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/devicelab-dev/uidriver/pkg/dispatch"
	"github.com/rs/zerolog"
)

// calculatorTree builds a small calculator window whose buttons drive a
// results display, enough to exercise resolve, act, and expect end to end.
func calculatorTree() (*memtree.Tree, *memtree.Node) {
	tree := memtree.New()
	win := tree.AddWindow("Calculator")

	display := win.Add("text", "CalculatorResults").SetAttr(core.AttrText, "0")

	var expr string
	digit := func(d string) func() {
		return func() {
			expr += d
			display.SetAttr(core.AttrText, expr)
		}
	}
	win.Add("button", "Seven").OnClick(digit("7"))
	win.Add("button", "Plus").OnClick(digit("+"))
	win.Add("button", "Eight").OnClick(digit("8"))
	win.Add("button", "Equals").OnClick(func() {
		if expr == "7+8" {
			display.SetAttr(core.AttrText, "15")
		}
	})
	return tree, display
}

func newTestServer(t *testing.T, tree *memtree.Tree) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.PollIntervalMs = 10
	srv := New(cfg, zerolog.Nop(), accessibility.NewSerialized(tree), tree)
	t.Cleanup(srv.handles.Close)
	return srv
}

// do runs one request against the handler and decodes the JSON response.
func do(t *testing.T, h http.Handler, method, path string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func jsonString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("not a string: %s", raw)
	}
	return s
}

func TestServer_Health(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, out := do(t, h, http.MethodGet, "/health", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := jsonString(t, out["status"]); got != "ok" {
		t.Errorf("status field = %q, want ok", got)
	}
}

func TestServer_OpenApplication(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, _ := do(t, h, http.MethodPost, "/application/open", openApplicationRequest{NameOrPath: "Calculator"})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	apps := tree.LaunchedApps()
	if len(apps) != 1 || apps[0] != "Calculator" {
		t.Errorf("launched apps = %v, want [Calculator]", apps)
	}

	status, out := do(t, h, http.MethodPost, "/application/open", openApplicationRequest{})
	if status != http.StatusBadRequest {
		t.Fatalf("empty nameOrPath: status = %d, want 400", status)
	}
	if got := jsonString(t, out["code"]); got != "bad_request" {
		t.Errorf("code = %q, want bad_request", got)
	}
}

func TestServer_OpenURL(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, _ := do(t, h, http.MethodPost, "/url/open", openURLRequest{URL: "https://example.com"})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	urls := tree.OpenedURLs()
	if len(urls) != 1 || urls[0] != "https://example.com" {
		t.Errorf("opened urls = %v, want [https://example.com]", urls)
	}

	status, _ = do(t, h, http.MethodPost, "/url/open", openURLRequest{})
	if status != http.StatusBadRequest {
		t.Fatalf("empty url: status = %d, want 400", status)
	}
}

func TestServer_Resolve(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, out := do(t, h, http.MethodPost, "/resolve", resolveRequest{
		Chain: []string{"window:Calculator", "name:Seven"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var el elementPayload
	if err := json.Unmarshal(out["element"], &el); err != nil {
		t.Fatalf("element: %v", err)
	}
	if el.Name != "Seven" || el.Role != "button" {
		t.Errorf("element = %+v, want Seven button", el)
	}
	if _, hasRef := out["ref"]; hasRef {
		t.Error("ref present without retain")
	}
}

func TestServer_Resolve_Retain(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, out := do(t, h, http.MethodPost, "/resolve", resolveRequest{
		Chain:  []string{"name:Eight"},
		Retain: true,
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if jsonString(t, out["ref"]) == "" {
		t.Error("retain did not return a ref")
	}
}

func TestServer_Resolve_CaseInsensitive(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, _ := do(t, h, http.MethodPost, "/resolve", resolveRequest{
		Chain: []string{"name:seven"},
	})
	if status != http.StatusNotFound {
		t.Fatalf("exact match: status = %d, want 404", status)
	}

	status, _ = do(t, h, http.MethodPost, "/resolve", resolveRequest{
		Chain:           []string{"name:seven"},
		CaseInsensitive: true,
	})
	if status != http.StatusOK {
		t.Fatalf("case-insensitive match: status = %d, want 200", status)
	}
}

func TestServer_Resolve_Errors(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	tests := []struct {
		name       string
		req        resolveRequest
		wantStatus int
		wantCode   string
		wantIndex  *int
	}{
		{
			name:       "no colon",
			req:        resolveRequest{Chain: []string{"Calculator"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_selector",
		},
		{
			name:       "unknown strategy",
			req:        resolveRequest{Chain: []string{"xpath://div"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_selector",
		},
		{
			name:       "empty chain",
			req:        resolveRequest{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_selector",
		},
		{
			name:       "second link matches nothing",
			req:        resolveRequest{Chain: []string{"window:Calculator", "name:Nine"}},
			wantStatus: http.StatusNotFound,
			wantCode:   "element_not_found",
			wantIndex:  intPtr(1),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, out := do(t, h, http.MethodPost, "/resolve", tc.req)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", status, tc.wantStatus)
			}
			if got := jsonString(t, out["code"]); got != tc.wantCode {
				t.Errorf("code = %q, want %q", got, tc.wantCode)
			}
			if tc.wantIndex != nil {
				var idx int
				if err := json.Unmarshal(out["selectorIndex"], &idx); err != nil {
					t.Fatalf("selectorIndex missing: %v", err)
				}
				if idx != *tc.wantIndex {
					t.Errorf("selectorIndex = %d, want %d", idx, *tc.wantIndex)
				}
			}
		})
	}
}

func TestServer_Act_Chain(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, out := do(t, h, http.MethodPost, "/act", actRequest{
		Chain:  []string{"name:CalculatorResults"},
		Action: actionOf("getText"),
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := jsonString(t, out["text"]); got != "0" {
		t.Errorf("text = %q, want 0", got)
	}
}

func TestServer_Act_Ref(t *testing.T) {
	tree, display := calculatorTree()
	h := newTestServer(t, tree).Handler()

	_, out := do(t, h, http.MethodPost, "/resolve", resolveRequest{
		Chain:  []string{"name:Seven"},
		Retain: true,
	})
	ref := jsonString(t, out["ref"])

	status, _ := do(t, h, http.MethodPost, "/act", actRequest{
		Ref:    ref,
		Action: actionOf("click"),
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := display.Text(); got != "7" {
		t.Errorf("display = %q, want 7", got)
	}
}

func TestServer_Act_Errors(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	t.Run("unknown ref", func(t *testing.T) {
		status, out := do(t, h, http.MethodPost, "/act", actRequest{
			Ref:    "no-such-handle",
			Action: actionOf("click"),
		})
		if status != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", status)
		}
		if got := jsonString(t, out["code"]); got != "stale_element" {
			t.Errorf("code = %q, want stale_element", got)
		}
	})

	t.Run("ref and chain together", func(t *testing.T) {
		status, _ := do(t, h, http.MethodPost, "/act", actRequest{
			Ref:    "x",
			Chain:  []string{"name:Seven"},
			Action: actionOf("click"),
		})
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", status)
		}
	})

	t.Run("neither ref nor chain", func(t *testing.T) {
		status, _ := do(t, h, http.MethodPost, "/act", actRequest{Action: actionOf("click")})
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", status)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		status, _ := do(t, h, http.MethodPost, "/act", actRequest{
			Chain:  []string{"name:Seven"},
			Action: actionOf("hover"),
		})
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", status)
		}
	})
}

func TestServer_Expect(t *testing.T) {
	tree, display := calculatorTree()
	h := newTestServer(t, tree).Handler()

	go func() {
		time.Sleep(30 * time.Millisecond)
		display.SetAttr(core.AttrText, "15")
	}()

	status, _ := do(t, h, http.MethodPost, "/expect", expectRequest{
		Chain:          []string{"name:CalculatorResults"},
		Predicate:      "textEquals",
		Text:           "15",
		TimeoutMs:      2000,
		PollIntervalMs: 10,
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
}

func TestServer_Expect_Timeout(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, out := do(t, h, http.MethodPost, "/expect", expectRequest{
		Chain:          []string{"name:Nine"},
		Predicate:      "visible",
		TimeoutMs:      50,
		PollIntervalMs: 10,
	})
	if status != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want 408", status)
	}
	if got := jsonString(t, out["code"]); got != "timeout" {
		t.Errorf("code = %q, want timeout", got)
	}
}

func TestServer_Expect_BadPredicate(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, _ := do(t, h, http.MethodPost, "/expect", expectRequest{
		Chain:     []string{"name:Seven"},
		Predicate: "blinking",
		TimeoutMs: 5000,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without burning the timeout", status)
	}
}

// TestServer_Calculator walks the full 7+8 flow over the wire.
func TestServer_Calculator(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	if status, _ := do(t, h, http.MethodPost, "/application/open", openApplicationRequest{NameOrPath: "Calculator"}); status != http.StatusOK {
		t.Fatalf("open application: status = %d", status)
	}

	for _, button := range []string{"Seven", "Plus", "Eight", "Equals"} {
		status, _ := do(t, h, http.MethodPost, "/act", actRequest{
			Chain:  []string{"window:Calculator", "name:" + button},
			Action: actionOf("click"),
		})
		if status != http.StatusOK {
			t.Fatalf("click %s: status = %d", button, status)
		}
	}

	status, out := do(t, h, http.MethodPost, "/expect", expectRequest{
		Chain:     []string{"window:Calculator", "name:CalculatorResults"},
		Predicate: "textEquals",
		Text:      "15",
		TimeoutMs: 2000,
	})
	if status != http.StatusOK {
		t.Fatalf("expect result: status = %d, body = %v", status, out)
	}

	_, out = do(t, h, http.MethodPost, "/act", actRequest{
		Chain:  []string{"name:CalculatorResults"},
		Action: actionOf("getText"),
	})
	if got := jsonString(t, out["text"]); got != "15" {
		t.Errorf("result text = %q, want 15", got)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	status, out := do(t, h, http.MethodGet, "/resolve", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if got := jsonString(t, out["code"]); got != "bad_request" {
		t.Errorf("code = %q, want bad_request", got)
	}
}

func TestServer_Metrics(t *testing.T) {
	tree, _ := calculatorTree()
	h := newTestServer(t, tree).Handler()

	// Generate one request so the counter has a sample.
	do(t, h, http.MethodGet, "/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "uidriver_http_requests_total") {
		t.Error("request counter missing from metrics output")
	}
}

func TestHandleStore_Expiry(t *testing.T) {
	store := newHandleStore(30 * time.Millisecond)
	defer store.Close()

	id := store.Put(core.NodeRef{ID: "n1", Target: "w1"})
	if _, err := store.Get(id); err != nil {
		t.Fatalf("fresh handle: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	_, err := store.Get(id)
	if err == nil {
		t.Fatal("expired handle still resolved")
	}
	api := core.AsApiError(err)
	if api.Code != "stale_element" {
		t.Errorf("code = %q, want stale_element", api.Code)
	}
}

func actionOf(kind string) dispatch.Request {
	return dispatch.Request{Type: dispatch.ActionType(kind)}
}

func intPtr(i int) *int { return &i }
