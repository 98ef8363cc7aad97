// Package timer profiles named, possibly nested sections of a run.
package timer

import (
	"fmt"
	"sync"
	"time"
)

// Section is one finished profiled span.
type Section struct {
	Name     string
	Duration time.Duration
}

// Timer records sections in the order they finish, so inner sections of
// a nested block land before their enclosing one. The zero value is
// ready to use.
type Timer struct {
	// Log, when set, is called once per finished section.
	Log func(name string, d time.Duration)

	mu       sync.Mutex
	sections []Section
	counter  int
}

// Start begins a section and returns the function that ends it:
//
//	stop := tm.Start("load mesh")
//	...
//	stop()
//
// An empty name gets a generated "Section N" label. The stop function
// must be called exactly once; defer is the usual shape.
func (t *Timer) Start(name string) func() {
	t.mu.Lock()
	if name == "" {
		name = fmt.Sprintf("Section %d", t.counter)
	}
	t.counter++
	t.mu.Unlock()

	begin := time.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			d := time.Since(begin)
			t.mu.Lock()
			t.sections = append(t.sections, Section{Name: name, Duration: d})
			log := t.Log
			t.mu.Unlock()
			if log != nil {
				log(name, d)
			}
		})
	}
}

// Sections returns the finished sections in completion order.
func (t *Timer) Sections() []Section {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Section, len(t.sections))
	copy(out, t.sections)
	return out
}

// Total sums the recorded durations of sections with the given name,
// or of all sections when name is empty.
func (t *Timer) Total(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sum time.Duration
	for _, s := range t.sections {
		if name == "" || s.Name == name {
			sum += s.Duration
		}
	}
	return sum
}
