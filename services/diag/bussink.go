// services/diag/bussink.go
package diag

import "ornament-go/bus"

const topicPrefix = "diag"

var (
	TopicAll        = bus.Topic{topicPrefix, "#"}
	TopicPowerState = bus.Topic{topicPrefix, "power", "state"}
	TopicLEDPattern = bus.Topic{topicPrefix, "led", "pattern"}
)

// BusSink publishes every notice on diag/<source>/<event>. Power state and
// LED pattern notices are retained so a late monitor sees current state.
type BusSink struct {
	conn *bus.Connection
}

func NewBusSink(conn *bus.Connection) *BusSink { return &BusSink{conn: conn} }

func (s *BusSink) Notify(n Notice) {
	retained := (n.Source == "power" && n.Event == "state") ||
		(n.Source == "led" && n.Event == "pattern")
	s.conn.Publish(s.conn.NewMessage(bus.Topic{topicPrefix, n.Source, n.Event}, n, retained))
}
