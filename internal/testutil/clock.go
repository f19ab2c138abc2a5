package testutil

import (
	"strconv"
	"sync"
	"time"

	"autosaver/internal/saver"
)

// StubClock is a manually driven saver.Clock. The grace window only moves
// when a test calls Advance or Set.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ saver.Clock = (*StubClock)(nil)

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock starts at 2024-01-15 10:30:00 local time. Backup names are
// rendered in local time, so tests stay readable in any zone.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// StubIDGenerator numbers journal entries "entry-1", "entry-2", ...
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

var _ saver.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "entry-" + strconv.Itoa(g.next)
}
