package registry

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher fans registry events out to a NATS subject tree, one subject
// per event name under the configured prefix.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url and publishes under prefix (e.g.
// "inferd.events"). Reconnects indefinitely; publishes while disconnected are
// dropped rather than blocking lifecycle operations.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("inferd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "inferd.events"
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(e Event) {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = p.nc.Publish(p.prefix+"."+e.Name, b)
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}
