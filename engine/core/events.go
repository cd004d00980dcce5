// Package core carries the event bus shared by the extraction stages.
package core

import (
	"fmt"
	"sync"
)

// Event represents a pipeline event
type Event struct {
	Type   EventType
	Zone   string
	Bundle string
	// File is the asset file name or download target, when relevant.
	File string
	Err  error
}

type EventType uint16

const (
	EvtCatalogFetched EventType = iota
	EvtCatalogCached
	EvtBundleDownloaded
	EvtBundleCached
	EvtDownloadFailed
	EvtAssetWritten
	EvtAssetSkipped
	EvtAssetFailed
	EvtBundleExtracted
	EvtBundleFailed
	EvtZoneDone
)

var eventNames = [...]string{
	EvtCatalogFetched:   "catalog-fetched",
	EvtCatalogCached:    "catalog-cached",
	EvtBundleDownloaded: "bundle-downloaded",
	EvtBundleCached:     "bundle-cached",
	EvtDownloadFailed:   "download-failed",
	EvtAssetWritten:     "asset-written",
	EvtAssetSkipped:     "asset-skipped",
	EvtAssetFailed:      "asset-failed",
	EvtBundleExtracted:  "bundle-extracted",
	EvtBundleFailed:     "bundle-failed",
	EvtZoneDone:         "zone-done",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("event(%d)", uint16(t))
}

// EventBus delivers events to listeners. It is safe for concurrent use;
// handlers run one at a time and must not publish events themselves.
type EventBus struct {
	mu        sync.Mutex
	listeners map[EventType][]EventHandler
	any       []EventHandler
}

type EventHandler func(e Event)

func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[EventType][]EventHandler),
	}
}

// On registers a handler for an event type
func (eb *EventBus) On(t EventType, h EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners[t] = append(eb.listeners[t], h)
}

// OnAny registers a handler for every event type
func (eb *EventBus) OnAny(h EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.any = append(eb.any, h)
}

// Publish delivers an event to the handlers for its type, then to the
// catch-all handlers. A nil bus drops the event.
func (eb *EventBus) Publish(e Event) {
	if eb == nil {
		return
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for _, h := range eb.listeners[e.Type] {
		h(e)
	}
	for _, h := range eb.any {
		h(e)
	}
}
