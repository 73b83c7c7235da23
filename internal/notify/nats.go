package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// Subscriber feeds pushes published on a NATS subject into an Emitter.
type Subscriber struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

// Subscribe connects to url and delivers every message on subject to the
// emitter. Callbacks run on the NATS dispatch goroutine.
func Subscribe(url, subject string, emitter *Emitter) (*Subscriber, error) {
	nc, err := nats.Connect(url,
		nats.Name("manga-slayer"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[PUSH] NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("[PUSH] NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		data := make([]byte, len(m.Data))
		copy(data, m.Data)
		emitter.HandlePush(context.Background(), data)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	log.Printf("[PUSH] Listening for pushes on NATS subject %s", subject)
	return &Subscriber{nc: nc, sub: sub}, nil
}

func (s *Subscriber) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.nc.Close()
	return err
}
