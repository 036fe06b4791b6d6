// services/diag/diag.go
package diag

// Notice is one human-readable state transition from the control loops
// (initialisation, pattern changes, voltage faults, rail switches).
type Notice struct {
	Source string // "init" | "power" | "led" | "sched"
	Event  string
	Value  any
	Tick   uint32 // wake timer tick at emission
}

// Sink receives notices. Components hold a nil Sink in release builds and
// skip emission entirely, so diagnostics never affect control flow.
type Sink interface {
	Notify(n Notice)
}

// Nop discards notices.
type Nop struct{}

func (Nop) Notify(Notice) {}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n Notice)

func (f SinkFunc) Notify(n Notice) { f(n) }

// Collector keeps notices in memory for tests and the host simulator.
type Collector struct {
	Notices []Notice
}

func (c *Collector) Notify(n Notice) { c.Notices = append(c.Notices, n) }

// Count returns how many notices match source/event ("" matches any).
func (c *Collector) Count(source, event string) int {
	n := 0
	for _, x := range c.Notices {
		if (source == "" || x.Source == source) && (event == "" || x.Event == event) {
			n++
		}
	}
	return n
}
