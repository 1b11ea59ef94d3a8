// Package accessibility selects and wraps the platform accessibility
// backend. The concrete backend is chosen once at process startup; the
// resolver, dispatcher and poll engine above it never branch on platform.
package accessibility

import (
	"fmt"
	"runtime"

	"github.com/devicelab-dev/uidriver/pkg/accessibility/bridge"
	"github.com/devicelab-dev/uidriver/pkg/accessibility/memtree"
	"github.com/devicelab-dev/uidriver/pkg/core"
)

// Config selects the backend and its endpoint.
type Config struct {
	// Backend is "auto", "bridge" or "memtree". "auto" picks the native
	// bridge with the platform default endpoint.
	Backend string

	// Socket is the bridge Unix socket path (macOS, Linux).
	Socket string

	// Port is the bridge TCP port (Windows, or when Socket is empty).
	Port int
}

// Default bridge endpoints. The native bridge process is launched by the
// installer; one wire protocol covers the UIA, AX and AT-SPI bridges.
const (
	DefaultSocket = "/tmp/uidriver-bridge.sock"
	DefaultPort   = 8271
)

// New builds the adapter and launcher for the configured backend. The
// returned adapter is already wrapped with per-target serialization.
func New(cfg Config) (core.Adapter, core.Launcher, error) {
	switch cfg.Backend {
	case "", "auto", "bridge":
		client := newBridgeClient(cfg)
		a := bridge.NewAdapter(client)
		return NewSerialized(a), a, nil
	case "memtree":
		tree := memtree.New()
		return NewSerialized(tree), tree, nil
	default:
		return nil, nil, fmt.Errorf("unknown accessibility backend %q", cfg.Backend)
	}
}

// newBridgeClient picks the transport the way the platform bridges expose
// it: Unix socket on macOS/Linux, TCP loopback on Windows.
func newBridgeClient(cfg Config) *bridge.Client {
	if cfg.Socket != "" {
		return bridge.NewClient(cfg.Socket)
	}
	if cfg.Port != 0 {
		return bridge.NewClientTCP(cfg.Port)
	}
	if runtime.GOOS == "windows" {
		return bridge.NewClientTCP(DefaultPort)
	}
	return bridge.NewClient(DefaultSocket)
}
