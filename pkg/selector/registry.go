package selector

import (
	"strings"
	"sync"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// The strategy registry maps each strategy tag to its matcher. Adding a
// strategy means registering a new entry, not altering call sites.
var (
	registryMu sync.RWMutex
	registry   = map[string]Matcher{
		"name":         attrMatcher(core.AttrName),
		"role":         attrMatcher(core.AttrRole),
		"id":           attrMatcher(core.AttrID),
		"automationid": attrMatcher(core.AttrAutomationID),
		"text":         attrMatcher(core.AttrText),
		"classname":    attrMatcher(core.AttrClassName),
		"window":       Matcher(windowMatcher),
	}
)

// Register adds or replaces a strategy. The tag is case-insensitive.
func Register(tag string, m Matcher) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(tag)] = m
}

// Strategies returns the registered strategy tags, for diagnostics.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	return tags
}

func lookup(tag string) (Matcher, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := registry[tag]
	return m, ok
}
