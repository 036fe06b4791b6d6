// services/diag/monitor.go
package diag

import (
	"context"
	"io"

	"ornament-go/bus"
)

// Monitor prints diagnostic notices from the bus, one line each.
type Monitor struct {
	w     io.Writer
	lines uint32
}

func NewMonitor(w io.Writer) *Monitor { return &Monitor{w: w} }

func (m *Monitor) serviceLoop(ctx context.Context, conn *bus.Connection, sub *bus.Subscription) {
	defer conn.Unsubscribe(sub)

	var buf []byte
	for {
		select {
		case <-ctx.Done():
			println("[diag] monitor stopping")
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			n, ok := msg.Payload.(Notice)
			if !ok {
				continue
			}
			buf = AppendLine(buf[:0], n)
			if _, err := m.w.Write(buf); err != nil {
				println("[diag] write failed:", err.Error())
				continue
			}
			m.lines++
		}
	}
}

// Start subscribes before returning so notices published afterwards are
// never missed, then drains them in a goroutine.
func (m *Monitor) Start(ctx context.Context, conn *bus.Connection) error {
	sub := conn.Subscribe(TopicAll)
	go m.serviceLoop(ctx, conn, sub)
	return nil
}
