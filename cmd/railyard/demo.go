package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/ib-77/railyard/pkg/providers"
	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/guard"
	"github.com/ib-77/railyard/pkg/rop/pipe"
	"github.com/ib-77/railyard/pkg/rop/shared"
)

type demoOptions struct {
	producers    int
	messages     int
	produceDelay time.Duration
	consumeDelay time.Duration
	capacity     int
}

func newDemoCmd() *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run producers publishing messages to a single consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), *opts)
		},
	}

	cmd.Flags().IntVar(&opts.producers, "producers", 3, "number of producers")
	cmd.Flags().IntVar(&opts.messages, "messages", 5, "messages per producer")
	cmd.Flags().DurationVar(&opts.produceDelay, "produce-delay", 100*time.Millisecond, "simulated work per message")
	cmd.Flags().DurationVar(&opts.consumeDelay, "consume-delay", 150*time.Millisecond, "simulated processing per message")
	cmd.Flags().IntVar(&opts.capacity, "capacity", 4, "pipeline capacity")

	return cmd
}

func runDemo(ctx context.Context, w io.Writer, opts demoOptions) error {
	root, rx := pipe.New[rop.Outcome[string]](opts.capacity)
	clock := clockwork.NewRealClock()

	for p := range opts.producers {
		tx, err := root.Clone()
		if err != nil {
			return err
		}

		go func() {
			defer tx.Close()
			for n := range opts.messages {
				msg := providers.Message{Producer: p, Seq: n, Delay: opts.produceDelay}
				out := guard.RunWithDeadline(ctx, clock, opts.produceDelay+time.Second,
					func(ctx context.Context) (string, error) { return providers.Echo(ctx, msg) })

				if err := tx.Publish(ctx, out.For(fmt.Sprint(p))); err != nil {
					return
				}
			}
		}()
	}
	// the consumer must not wait on the original sender.
	root.Close()

	order := shared.New(map[string][]string{})
	received := 0
	for {
		out, ok, err := rx.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		received++
		fmt.Fprintf(w, "consumer received: %s\n", out.Payload())
		order.Do(func(m *map[string][]string) {
			(*m)[out.ItemID()] = append((*m)[out.ItemID()], out.Payload())
		})

		if opts.consumeDelay > 0 {
			select {
			case <-time.After(opts.consumeDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	fmt.Fprintf(w, "all %d messages processed, consumer exiting\n", received)
	for p := range opts.producers {
		seq := shared.Access(order, func(m *map[string][]string) []string { return (*m)[fmt.Sprint(p)] })
		fmt.Fprintf(w, "producer %d order: %s\n", p, strings.Join(seq, " | "))
	}

	return nil
}
