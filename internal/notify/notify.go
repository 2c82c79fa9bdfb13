// Package notify is the system notification collaborator (missed calls,
// rejected calls, call-ended toasts).
package notify

import (
	"log/slog"
	"sync"
)

// Notifier posts system notifications.
type Notifier interface {
	Post(title, body string)
}

// Noop logs instead of posting.
type Noop struct{}

func (Noop) Post(title, body string) {
	slog.Debug("[Notify] System notification", "title", title, "body", body)
}

// Notification is one posted notification.
type Notification struct {
	Title string
	Body  string
}

// Mock records notifications for test assertions.
type Mock struct {
	mu    sync.Mutex
	posts []Notification
}

// NewMock creates a new Mock.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Post(title, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, Notification{Title: title, Body: body})
}

// Posts returns a copy of all recorded notifications.
func (m *Mock) Posts() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.posts))
	copy(out, m.posts)
	return out
}
