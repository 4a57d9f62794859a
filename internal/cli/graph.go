package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/tensorgraph/internal/diag"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// NewValidateCmd создаёт команду проверки manifest.
func NewValidateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a manifest and build its graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := env.Load()
			if err != nil {
				return err
			}
			defer b.Graph.Free()

			out := env.Output()
			out.Success(fmt.Sprintf("Manifest OK: %d nodes, %d tensors, %d multiviews",
				len(b.Nodes), len(b.Tensors), len(b.Multiviews)))
			return nil
		},
	}
}

type orderRow struct {
	Step    int    `json:"step"`
	Node    string `json:"node"`
	Command string `json:"command"`
	Nested  bool   `json:"nested"`
}

// NewOrderCmd создаёт команду вывода порядка обхода.
func NewOrderCmd(env *Env) *cobra.Command {
	var sc scope

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the dependency order of the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := env.Load()
			if err != nil {
				return err
			}
			defer b.Graph.Free()

			sources, destinations, err := sc.handles(b)
			if err != nil {
				return err
			}
			order, err := b.Graph.Order(sources, destinations)
			if err != nil {
				return err
			}

			rows := make([][]string, len(order))
			data := make([]orderRow, len(order))
			for i, h := range order {
				e, err := b.Graph.Exec(h)
				if err != nil {
					return err
				}
				data[i] = orderRow{
					Step:    i,
					Node:    b.Name(h),
					Command: e.Command().String(),
					Nested:  e.Subgraph() != nil,
				}
				rows[i] = []string{strconv.Itoa(i), data[i].Node, data[i].Command, strconv.FormatBool(data[i].Nested)}
			}

			return env.Output().Print([]string{"STEP", "NODE", "COMMAND", "SUBGRAPH"}, rows, data)
		},
	}

	sc.bind(cmd)
	return cmd
}

// NewDotCmd создаёт команду выгрузки графа в Graphviz DOT.
func NewDotCmd(env *Env) *cobra.Command {
	var detail string

	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Write the graph in Graphviz DOT format",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := diag.ParseFlags(detail)
			if err != nil {
				return err
			}

			b, err := env.Load()
			if err != nil {
				return err
			}
			defer b.Graph.Free()

			return diag.WriteDOT(env.Output().Writer(), b.Graph, flags)
		},
	}

	cmd.Flags().StringVar(&detail, "detail", "short", "Detail level: short or long")
	return cmd
}

type zoneRow struct {
	Tensor string `json:"tensor"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Zone   int    `json:"zone"`
}

// NewZonesCmd создаёт команду вывода зон пересекающейся памяти.
func NewZonesCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "Group manifest tensors into overlapping memory zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := env.Load()
			if err != nil {
				return err
			}
			defer b.Graph.Free()

			ts := make([]*tensor.Tensor, 0, len(b.Tensors))
			for _, t := range b.Tensors {
				ts = append(ts, t)
			}
			sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })

			spans := make([]diag.Span, len(ts))
			for i, t := range ts {
				start, end := t.Span()
				spans[i] = diag.Span{Ref: i, Start: start, End: end}
			}
			placements := diag.Zones(spans)

			rows := make([][]string, len(ts))
			data := make([]zoneRow, len(ts))
			for i, t := range ts {
				data[i] = zoneRow{
					Tensor: t.String(),
					Start:  fmt.Sprintf("0x%08x", spans[i].Start),
					End:    fmt.Sprintf("0x%08x", spans[i].End),
					Zone:   placements[i].Zone,
				}
				rows[i] = []string{data[i].Tensor, data[i].Start, data[i].End, strconv.Itoa(data[i].Zone)}
			}

			return env.Output().Print([]string{"TENSOR", "START", "END", "ZONE"}, rows, data)
		},
	}
}
