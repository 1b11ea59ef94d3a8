package bridge

import (
	"context"
	"net/http"
	"net/url"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// Adapter implements core.Adapter and core.Launcher over the bridge wire
// protocol.
type Adapter struct {
	client *Client
}

// NewAdapter wraps a bridge client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// nodeModel is a node reference on the wire.
type nodeModel struct {
	ID     string `json:"id"`
	Target string `json:"target"`
}

func (m nodeModel) ref() core.NodeRef {
	return core.NodeRef{ID: m.ID, Target: m.Target}
}

func nodePath(ref core.NodeRef, suffix string) string {
	return "/node/" + url.PathEscape(ref.ID) + suffix
}

// Root implements core.Adapter.
func (a *Adapter) Root(ctx context.Context) (core.NodeRef, error) {
	var resp struct {
		Node nodeModel `json:"node"`
	}
	if err := a.client.request(ctx, http.MethodGet, "/tree/root", nil, &resp); err != nil {
		return core.NodeRef{}, err
	}
	return resp.Node.ref(), nil
}

// Children implements core.Adapter. The bridge reports children in native
// enumeration order.
func (a *Adapter) Children(ctx context.Context, node core.NodeRef) ([]core.NodeRef, error) {
	var resp struct {
		Children []nodeModel `json:"children"`
	}
	if err := a.client.request(ctx, http.MethodGet, nodePath(node, "/children"), nil, &resp); err != nil {
		return nil, err
	}
	refs := make([]core.NodeRef, len(resp.Children))
	for i, c := range resp.Children {
		refs[i] = c.ref()
	}
	return refs, nil
}

// Attribute implements core.Adapter.
func (a *Adapter) Attribute(ctx context.Context, node core.NodeRef, key string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	path := nodePath(node, "/attribute?key="+url.QueryEscape(key))
	if err := a.client.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// Attributes implements core.Adapter.
func (a *Adapter) Attributes(ctx context.Context, node core.NodeRef) (map[string]string, error) {
	var resp struct {
		Attributes map[string]string `json:"attributes"`
	}
	if err := a.client.request(ctx, http.MethodGet, nodePath(node, "/attributes"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attributes, nil
}

// BoundingRect implements core.Adapter.
func (a *Adapter) BoundingRect(ctx context.Context, node core.NodeRef) (core.Bounds, error) {
	var resp struct {
		Rect core.Bounds `json:"rect"`
	}
	if err := a.client.request(ctx, http.MethodGet, nodePath(node, "/rect"), nil, &resp); err != nil {
		return core.Bounds{}, err
	}
	return resp.Rect, nil
}

// IsVisible implements core.Adapter.
func (a *Adapter) IsVisible(ctx context.Context, node core.NodeRef) (bool, error) {
	return a.boolQuery(ctx, node, "/visible")
}

// IsEnabled implements core.Adapter.
func (a *Adapter) IsEnabled(ctx context.Context, node core.NodeRef) (bool, error) {
	return a.boolQuery(ctx, node, "/enabled")
}

func (a *Adapter) boolQuery(ctx context.Context, node core.NodeRef, suffix string) (bool, error) {
	var resp struct {
		Value bool `json:"value"`
	}
	if err := a.client.request(ctx, http.MethodGet, nodePath(node, suffix), nil, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// invokeRequest is the invoke payload.
type invokeRequest struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	Keys   string `json:"keys,omitempty"`
}

// Invoke implements core.Adapter.
func (a *Adapter) Invoke(ctx context.Context, node core.NodeRef, action core.Action) error {
	req := invokeRequest{
		Action: string(action.Kind),
		Text:   action.Text,
		Keys:   action.Keys,
	}
	return a.client.request(ctx, http.MethodPost, nodePath(node, "/invoke"), req, nil)
}

// OpenApplication implements core.Launcher.
func (a *Adapter) OpenApplication(ctx context.Context, nameOrPath string) error {
	req := map[string]string{"nameOrPath": nameOrPath}
	return a.client.request(ctx, http.MethodPost, "/app/open", req, nil)
}

// OpenURL implements core.Launcher.
func (a *Adapter) OpenURL(ctx context.Context, rawURL, browser string) error {
	req := map[string]string{"url": rawURL}
	if browser != "" {
		req["browser"] = browser
	}
	return a.client.request(ctx, http.MethodPost, "/url/open", req, nil)
}

var (
	_ core.Adapter  = (*Adapter)(nil)
	_ core.Launcher = (*Adapter)(nil)
)
