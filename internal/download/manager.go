package download

import (
	"errors"
	"sync"

	"premiere-bridge/internal/domain"
)

// ErrNoActiveJob is returned when cancel is requested while idle.
var ErrNoActiveJob = errors.New("no active download")

// Manager enforces the single-active-download invariant. The busy check and
// the running registration are one atomic step so two concurrent requests
// cannot both pass.
type Manager struct {
	mu      sync.Mutex
	current *Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{}
}

// begin registers job as the running download, rejecting when one is active.
func (m *Manager) begin(job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return domain.ErrBusy
	}
	m.current = job
	return nil
}

// finish releases the running slot if job still owns it.
func (m *Manager) finish(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == job {
		m.current = nil
	}
}

// Active returns the running job, if any.
func (m *Manager) Active() (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}
