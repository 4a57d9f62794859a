package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/tensorgraph/internal/controlflow"
	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/manifest"
)

// Env — общие настройки команд. Поля заполняются PersistentFlags,
// поэтому читать их можно только внутри RunE.
type Env struct {
	Manifest string
	JSON     bool

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Output создаёт Output по текущим флагам.
func (e *Env) Output() *Output {
	return NewOutput(e.Stdout, e.Stderr, e.JSON)
}

// Load читает и собирает manifest из --manifest.
func (e *Env) Load() (*manifest.Built, error) {
	if e.Manifest == "" {
		return nil, fmt.Errorf("--manifest is required")
	}
	m, err := manifest.Load(e.Manifest)
	if err != nil {
		return nil, err
	}
	return manifest.Build(m)
}

// Driver создаёт драйвер control flow с конструкциями из manifest.
func (e *Env) Driver(b *manifest.Built) (*controlflow.Driver, error) {
	d := controlflow.New(controlflow.Config{Logger: e.Logger})
	if err := b.Attach(d); err != nil {
		return nil, err
	}
	return d, nil
}

// scope — флаги --sources/--destinations.
type scope struct {
	sources      []string
	destinations []string
}

func (s *scope) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&s.sources, "sources", nil, "Comma-separated source node names (default: graph sources or roots)")
	flags.StringSliceVar(&s.destinations, "destinations", nil, "Comma-separated destination node names (default: graph destinations or sinks)")
}

func (s *scope) handles(b *manifest.Built) (sources, destinations []graph.Handle, err error) {
	if len(s.sources) > 0 {
		if sources, err = b.Handles(trim(s.sources)); err != nil {
			return nil, nil, err
		}
	}
	if len(s.destinations) > 0 {
		if destinations, err = b.Handles(trim(s.destinations)); err != nil {
			return nil, nil, err
		}
	}
	return sources, destinations, nil
}

func trim(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
