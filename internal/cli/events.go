package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/tensorgraph/internal/mq"
)

// NewEventsCmd создаёт команду чтения событий из RabbitMQ.
func NewEventsCmd(env *Env) *cobra.Command {
	var queue string
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Consume dispatch or tune events from RabbitMQ (RABBITMQ_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conn, err := mq.Dial(mq.URLFromEnv(), env.Logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				return err
			}

			out := env.Output()
			consumer := mq.NewConsumer(conn, mq.ConsumerConfig{
				Queue:   mq.Queue(queue),
				Limit:   limit,
				Logger:  env.Logger,
				Handler: func(_ context.Context, msg *mq.Message) error { return printEvent(out, msg) },
			})
			err = consumer.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&queue, "queue", string(mq.QueueDispatchFailures), "Queue to consume")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after N messages (0: until interrupted)")
	return cmd
}

func printEvent(out *Output, msg *mq.Message) error {
	if out.jsonMode {
		return out.JSON(msg)
	}

	ts := msg.Timestamp.Format(time.RFC3339)
	switch msg.Type {
	case mq.MessageTypeDispatch:
		p, err := mq.ParsePayload[mq.DispatchPayload](msg)
		if err != nil {
			return err
		}
		status := "ok"
		if p.Error != "" {
			status = p.Error
		}
		_, err = fmt.Fprintf(out.w, "%s %s graph=%s exec=%d %s %s\n",
			ts, p.Phase, p.GraphID, p.Index, p.Command, status)
		return err

	case mq.MessageTypeTuneCompleted:
		p, err := mq.ParsePayload[mq.TuneCompletedPayload](msg)
		if err != nil {
			return err
		}
		status := "ok"
		if p.Error != "" {
			status = p.Error
		}
		_, err = fmt.Fprintf(out.w, "%s tune %s nodes=%d %dms %s\n",
			ts, p.Manifest, p.Nodes, p.DurationMS, status)
		return err

	default:
		_, err := fmt.Fprintf(out.w, "%s %s %s\n", ts, msg.Type, msg.ID)
		return err
	}
}
