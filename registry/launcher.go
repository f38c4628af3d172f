package registry

import (
	"sync"

	"github.com/pixl-project/retroplayer/session"
)

// LaunchFunc starts content in a newly registered core.
type LaunchFunc func(s *session.Session, path string)

// launcher holds at most one queued file.
type launcher struct {
	mu        sync.Mutex
	path      string
	requested string
	fn        LaunchFunc
}

func (l *launcher) queue(path, requested string, fn LaunchFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path = path
	l.requested = requested
	l.fn = fn
}

func (l *launcher) clear() {
	l.queue("", "", nil)
}

// launch runs the queued file in s if s can open it.
func (l *launcher) launch(s *session.Session) bool {
	l.mu.Lock()
	if l.fn == nil || !s.CanOpen(l.path, l.requested) {
		l.mu.Unlock()
		return false
	}
	path, fn := l.path, l.fn
	l.path, l.requested, l.fn = "", "", nil
	l.mu.Unlock()

	fn(s, path)
	return true
}
