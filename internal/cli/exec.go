package cli

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/tensorgraph/internal/backend"
	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/manifest"
	"github.com/shaiso/tensorgraph/internal/mq"
	"github.com/shaiso/tensorgraph/internal/repo"
	"github.com/shaiso/tensorgraph/internal/tuning"
)

// execFlags — флаги команд run и autotune.
type execFlags struct {
	scope
	workspace int64
	useDB     bool
	publish   bool
}

func (f *execFlags) bind(cmd *cobra.Command) {
	f.scope.bind(cmd)
	flags := cmd.Flags()
	flags.Int64Var(&f.workspace, "workspace", 1<<20, "Autotune workspace budget in bytes")
	flags.BoolVar(&f.useDB, "db", false, "Cache autotune selections in PostgreSQL (DB_URL)")
	flags.BoolVar(&f.publish, "publish", false, "Publish dispatch events to RabbitMQ (RABBITMQ_URL)")
}

// stack — коллабораторы Runner и функция их освобождения.
type stack struct {
	registry  *backend.Registry
	autotuner graph.Autotuner
	observers []graph.Observer
	close     func()
}

func (f *execFlags) open(ctx context.Context, env *Env) (*stack, error) {
	s := &stack{registry: backend.NewRegistry(), close: func() {}}
	var closers []func()
	s.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store tuning.Store
	if f.useDB {
		pc, err := repo.PoolConfigFromEnv("tensorgraph")
		if err != nil {
			return nil, err
		}
		pool, err := repo.NewPool(ctx, pc)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)

		tr := repo.NewTuneRepo(pool)
		if err := tr.EnsureSchema(ctx); err != nil {
			s.close()
			return nil, err
		}
		store = tr
	}
	s.autotuner = tuning.New(tuning.Config{Inner: s.registry, Store: store, Logger: env.Logger})

	if f.publish {
		conn, err := mq.Dial(mq.URLFromEnv(), env.Logger)
		if err != nil {
			s.close()
			return nil, err
		}
		closers = append(closers, func() { _ = conn.Close() })

		if err := mq.SetupTopology(ctx, conn); err != nil {
			s.close()
			return nil, err
		}
		s.observers = append(s.observers, mq.NewEventSink(mq.SinkConfig{
			Sender: mq.NewPublisher(conn, env.Logger),
			Logger: env.Logger,
		}))
	}

	return s, nil
}

func (f *execFlags) runner(env *Env, b *manifest.Built, s *stack) (*graph.Runner, error) {
	driver, err := env.Driver(b)
	if err != nil {
		return nil, err
	}
	return graph.NewRunner(graph.Config{
		Executor:    s.registry,
		Autotuner:   s.autotuner,
		ControlFlow: driver,
		Observers:   s.observers,
		Workspace:   f.workspace,
		Rewind:      true,
		Logger:      env.Logger,
	}), nil
}

type traceRow struct {
	Step    int      `json:"step"`
	Command string   `json:"command"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// NewRunCmd создаёт команду выполнения графа на встроенном backend.
func NewRunCmd(env *Env) *cobra.Command {
	var f execFlags
	var autotune bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the graph on the built-in backend and print the dispatch trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b, err := env.Load()
			if err != nil {
				return err
			}
			defer b.Graph.Free()

			sources, destinations, err := f.handles(b)
			if err != nil {
				return err
			}

			s, err := f.open(ctx, env)
			if err != nil {
				return err
			}
			defer s.close()

			r, err := f.runner(env, b, s)
			if err != nil {
				return err
			}

			if autotune {
				if err := r.Autotune(ctx, b.Graph, sources, destinations); err != nil {
					return err
				}
			}
			if err := r.Run(ctx, b.Graph, sources, destinations); err != nil {
				return err
			}

			trace := s.registry.Trace()
			rows := make([][]string, len(trace))
			data := make([]traceRow, len(trace))
			for i, d := range trace {
				data[i] = traceRow{Step: i, Command: d.Command.String(), Inputs: d.Inputs, Outputs: d.Outputs}
				rows[i] = []string{
					strconv.Itoa(i),
					data[i].Command,
					strings.Join(d.Inputs, ","),
					strings.Join(d.Outputs, ","),
				}
			}
			return env.Output().Print([]string{"STEP", "COMMAND", "INPUTS", "OUTPUTS"}, rows, data)
		},
	}

	f.bind(cmd)
	cmd.Flags().BoolVar(&autotune, "autotune", false, "Autotune before running")
	return cmd
}

type selectionRow struct {
	Node      string `json:"node"`
	Command   string `json:"command"`
	Backend   string `json:"backend"`
	Algorithm int    `json:"algorithm"`
}

// NewAutotuneCmd создаёт команду выбора реализаций операций.
func NewAutotuneCmd(env *Env) *cobra.Command {
	var f execFlags

	cmd := &cobra.Command{
		Use:   "autotune",
		Short: "Select the cheapest kernel variant for every node within the workspace budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b, err := env.Load()
			if err != nil {
				return err
			}
			defer b.Graph.Free()

			sources, destinations, err := f.handles(b)
			if err != nil {
				return err
			}

			s, err := f.open(ctx, env)
			if err != nil {
				return err
			}
			defer s.close()

			r, err := f.runner(env, b, s)
			if err != nil {
				return err
			}
			if err := r.Autotune(ctx, b.Graph, sources, destinations); err != nil {
				return err
			}

			names := make([]string, 0, len(b.Nodes))
			for name := range b.Nodes {
				names = append(names, name)
			}
			sort.Strings(names)

			var rows [][]string
			var data []selectionRow
			for _, name := range names {
				h := b.Nodes[name]
				e, err := h.Graph().Exec(h)
				if err != nil {
					return err
				}
				if e.Subgraph() != nil {
					continue
				}
				c := e.Command()
				data = append(data, selectionRow{Node: name, Command: c.Name, Backend: c.Backend, Algorithm: c.Algorithm})
				rows = append(rows, []string{name, c.Name, c.Backend, strconv.Itoa(c.Algorithm)})
			}
			return env.Output().Print([]string{"NODE", "COMMAND", "BACKEND", "ALGORITHM"}, rows, data)
		},
	}

	f.bind(cmd)
	return cmd
}
