package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// newTestAdapter points an Adapter at an httptest server speaking the
// bridge protocol.
func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	port, err := strconv.Atoi(srv.URL[strings.LastIndex(srv.URL, ":")+1:])
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return NewAdapter(NewClientTCP(port))
}

func TestAdapter_Root(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tree/root" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"node": map[string]string{"id": "root", "target": "desktop"},
		})
	}))

	ref, err := a.Root(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "root" || ref.Target != "desktop" {
		t.Errorf("got ref %+v", ref)
	}
}

func TestAdapter_Children_Order(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"children": []map[string]string{
				{"id": "n1", "target": "Calc"},
				{"id": "n2", "target": "Calc"},
				{"id": "n3", "target": "Calc"},
			},
		})
	}))

	refs, err := a.Children(context.Background(), core.NodeRef{ID: "n0", Target: "Calc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"n1", "n2", "n3"}
	for i, ref := range refs {
		if ref.ID != want[i] {
			t.Errorf("child %d: got %q, want %q", i, ref.ID, want[i])
		}
	}
}

func TestAdapter_Invoke(t *testing.T) {
	var got invokeRequest
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("got method %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{}`))
	}))

	err := a.Invoke(context.Background(), core.NodeRef{ID: "n1"}, core.Action{
		Kind: core.ActionSetText,
		Text: "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Action != "setText" || got.Text != "hello" {
		t.Errorf("got payload %+v", got)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
		want    *core.ApiError
	}{
		{
			name:    "stale element",
			status:  http.StatusGone,
			payload: `{"error":"stale_element","message":"handle invalidated"}`,
			want:    core.ErrStaleElement,
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			payload: `{"error":"not_found","message":"no such node"}`,
			want:    core.ErrElementNotFound,
		},
		{
			name:    "other bridge error",
			status:  http.StatusInternalServerError,
			payload: `{"error":"ax_denied","message":"permission denied"}`,
			want:    core.ErrPlatform,
		},
		{
			name:    "unstructured error body",
			status:  http.StatusInternalServerError,
			payload: `panic`,
			want:    core.ErrPlatform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))

			_, err := a.Attribute(context.Background(), core.NodeRef{ID: "n1"}, "name")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	// Port from a server that is already closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	port, _ := strconv.Atoi(url[strings.LastIndex(url, ":")+1:])
	a := NewAdapter(NewClientTCP(port))

	_, err := a.Root(context.Background())
	if !errors.Is(err, core.ErrBackendUnreachable) {
		t.Errorf("got %v, want ErrBackendUnreachable", err)
	}
}

func TestClient_Status(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ready": true, "platform": "atspi"})
	}))

	ready, err := a.client.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ready {
		t.Error("expected ready=true")
	}
}
