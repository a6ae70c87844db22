package animation

import (
	"sync"

	"github.com/san-kum/pixi/internal/physics"
)

// Frame is handed to observers on every repaint. Sim is only valid for the
// duration of the call and must not be used from another goroutine.
type Frame struct {
	Sim  *physics.Simulation
	Tick uint64
	Rate float64
}

// Observer is notified by the controller after every tick and on reset.
// Both methods run on the controller goroutine. Calling a blocking
// controller method from inside them deadlocks; queue the call on another
// goroutine instead. Observers are compared with ==, so use pointer types.
type Observer interface {
	Repaint(f Frame)
	// Clear drops any state derived from the previous simulation.
	Clear()
}

type change struct {
	o   Observer
	add bool
}

// Registry is an ordered list of observers. Add and Remove may be called
// from any goroutine, including from inside a notification; they take effect
// at the start of the next broadcast. Repaint, Clear and Len belong to the
// goroutine that broadcasts.
type Registry struct {
	mu        sync.Mutex
	pending   []change
	observers []Observer
}

func (r *Registry) Add(o Observer) {
	r.mu.Lock()
	r.pending = append(r.pending, change{o: o, add: true})
	r.mu.Unlock()
}

// Remove unregisters the first registration of o.
func (r *Registry) Remove(o Observer) {
	r.mu.Lock()
	r.pending = append(r.pending, change{o: o})
	r.mu.Unlock()
}

func (r *Registry) apply() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, c := range pending {
		if c.add {
			r.observers = append(r.observers, c.o)
			continue
		}
		for i, o := range r.observers {
			if o == c.o {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				break
			}
		}
	}
}

// Repaint notifies every observer in registration order.
func (r *Registry) Repaint(f Frame) {
	r.apply()
	for _, o := range r.observers {
		o.Repaint(f)
	}
}

// Clear notifies every observer in registration order.
func (r *Registry) Clear() {
	r.apply()
	for _, o := range r.observers {
		o.Clear()
	}
}

// Len returns the number of observers as of the last broadcast.
func (r *Registry) Len() int { return len(r.observers) }
