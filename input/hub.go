package input

import "sync"

// KeyHub is a KeySource that hosts publish into. Delivery order is
// subscription order, over a snapshot taken per event.
type KeyHub struct {
	mu   sync.RWMutex
	subs []*keySub
}

type keySub struct{ fn func(KeyEvent) }

func (h *KeyHub) SubscribeKeys(fn func(KeyEvent)) (cancel func()) {
	s := &keySub{fn: fn}
	h.mu.Lock()
	h.subs = append(h.subs, s)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			next := make([]*keySub, 0, len(h.subs))
			for _, x := range h.subs {
				if x != s {
					next = append(next, x)
				}
			}
			h.subs = next
		})
	}
}

func (h *KeyHub) Publish(ev KeyEvent) {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()
	for _, s := range subs {
		s.fn(ev)
	}
}

// Subscribers reports how many subscriptions are live
func (h *KeyHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// PointerHub is the PointerSource counterpart of KeyHub
type PointerHub struct {
	mu   sync.RWMutex
	subs []*pointerSub
}

type pointerSub struct{ fn func(PointerEvent) }

func (h *PointerHub) SubscribePointer(fn func(PointerEvent)) (cancel func()) {
	s := &pointerSub{fn: fn}
	h.mu.Lock()
	h.subs = append(h.subs, s)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			next := make([]*pointerSub, 0, len(h.subs))
			for _, x := range h.subs {
				if x != s {
					next = append(next, x)
				}
			}
			h.subs = next
		})
	}
}

func (h *PointerHub) Publish(ev PointerEvent) {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()
	for _, s := range subs {
		s.fn(ev)
	}
}

func (h *PointerHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
