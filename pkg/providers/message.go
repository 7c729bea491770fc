package providers

import (
	"context"
	"fmt"
	"time"
)

type Message struct {
	Producer int           `yaml:"producer"`
	Seq      int           `yaml:"seq"`
	Body     string        `yaml:"body"`
	Delay    time.Duration `yaml:"delay"`
}

func (m Message) String() string {
	if m.Body != "" {
		return m.Body
	}
	return fmt.Sprintf("producer %d: message %d", m.Producer, m.Seq)
}

// Echo returns the message text after its optional simulated delay.
func Echo(ctx context.Context, m Message) (string, error) {
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.String(), nil
}
