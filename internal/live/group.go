package live

import "sync"

// StopFunc adapts a cancel func to a Stopper
type StopFunc func()

func (f StopFunc) Stop() { f() }

// Group owns the subscriptions of one screen
type Group struct {
	mu     sync.Mutex
	subs   []Stopper
	closed bool
}

// Add registers s. Adding to a closed group stops s immediately.
func (g *Group) Add(s Stopper) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		s.Stop()
		return
	}
	g.subs = append(g.subs, s)
	g.mu.Unlock()
}

// Replace stops old, if it is registered, and registers s in its place
func (g *Group) Replace(old, s Stopper) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		s.Stop()
		return
	}
	found := false
	for i, sub := range g.subs {
		if sub == old {
			g.subs[i] = s
			found = true
			break
		}
	}
	if !found {
		g.subs = append(g.subs, s)
	}
	g.mu.Unlock()

	if found && old != nil {
		old.Stop()
	}
}

// Remove unregisters s and stops it
func (g *Group) Remove(s Stopper) {
	g.mu.Lock()
	for i, sub := range g.subs {
		if sub == s {
			g.subs = append(g.subs[:i], g.subs[i+1:]...)
			break
		}
	}
	g.mu.Unlock()
	s.Stop()
}

// Close stops every registered subscription. It is safe to call more than once.
func (g *Group) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, s := range subs {
		s.Stop()
	}
}

// Closed reports whether Close has been called
func (g *Group) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Len is the number of live subscriptions
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}
