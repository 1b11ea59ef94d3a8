package accessibility

import (
	"context"
	"sync"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// desktopTarget keys operations that are not bound to a window, such as
// enumerating the desktop root.
const desktopTarget = "desktop"

// Serialized wraps an adapter with a per-target mutex. Several native
// accessibility backends are not reentrant against the same window from
// multiple threads, so all operations targeting one window/application are
// serialized while requests against disjoint targets run fully parallel.
type Serialized struct {
	inner core.Adapter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSerialized wraps adapter with per-target serialization.
func NewSerialized(adapter core.Adapter) *Serialized {
	return &Serialized{
		inner: adapter,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Serialized) lockFor(target string) *sync.Mutex {
	if target == "" {
		target = desktopTarget
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[target]
	if !ok {
		l = &sync.Mutex{}
		s.locks[target] = l
	}
	return l
}

// Root enumerates under the desktop lock.
func (s *Serialized) Root(ctx context.Context) (core.NodeRef, error) {
	l := s.lockFor(desktopTarget)
	l.Lock()
	defer l.Unlock()
	return s.inner.Root(ctx)
}

func (s *Serialized) Children(ctx context.Context, node core.NodeRef) ([]core.NodeRef, error) {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.Children(ctx, node)
}

func (s *Serialized) Attribute(ctx context.Context, node core.NodeRef, key string) (string, error) {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.Attribute(ctx, node, key)
}

func (s *Serialized) Attributes(ctx context.Context, node core.NodeRef) (map[string]string, error) {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.Attributes(ctx, node)
}

func (s *Serialized) BoundingRect(ctx context.Context, node core.NodeRef) (core.Bounds, error) {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.BoundingRect(ctx, node)
}

func (s *Serialized) IsVisible(ctx context.Context, node core.NodeRef) (bool, error) {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.IsVisible(ctx, node)
}

func (s *Serialized) IsEnabled(ctx context.Context, node core.NodeRef) (bool, error) {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.IsEnabled(ctx, node)
}

func (s *Serialized) Invoke(ctx context.Context, node core.NodeRef, action core.Action) error {
	l := s.lockFor(node.Target)
	l.Lock()
	defer l.Unlock()
	return s.inner.Invoke(ctx, node, action)
}

var _ core.Adapter = (*Serialized)(nil)
