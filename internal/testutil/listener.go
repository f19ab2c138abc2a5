package testutil

import (
	"sync"

	"autosaver/internal/saver"
)

// RecordingListener collects every event it receives.
type RecordingListener struct {
	mu           sync.Mutex
	Errors       []error
	Logs         []string
	StoreChanges int
}

func NewRecordingListener() *RecordingListener {
	return &RecordingListener{}
}

func (l *RecordingListener) OnError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, err)
}

func (l *RecordingListener) OnLog(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Logs = append(l.Logs, msg)
}

func (l *RecordingListener) OnStoreChanged() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.StoreChanges++
}

// Reset clears everything recorded so far.
func (l *RecordingListener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = nil
	l.Logs = nil
	l.StoreChanges = 0
}

var _ saver.Listener = (*RecordingListener)(nil)
