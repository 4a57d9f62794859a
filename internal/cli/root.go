package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/tensorgraph/internal/telemetry"
)

// NewRootCmd собирает дерево команд tensorgraph.
//
// Stdout, Stderr и Logger env заполняются, если пусты.
func NewRootCmd(version string, env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "tensorgraph",
		Short:         "Build, order, autotune and run tensor computation graphs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if env.Stdout == nil {
				env.Stdout = cmd.OutOrStdout()
			}
			if env.Stderr == nil {
				env.Stderr = cmd.ErrOrStderr()
			}
			if env.Logger == nil {
				env.Logger = telemetry.NewLogger(env.Stderr)
			}
		},
	}

	root.PersistentFlags().StringVarP(&env.Manifest, "manifest", "m", "", "Path to the graph manifest (JSON)")
	root.PersistentFlags().BoolVar(&env.JSON, "json", false, "Output in JSON format")

	root.AddCommand(
		NewValidateCmd(env),
		NewOrderCmd(env),
		NewRunCmd(env),
		NewAutotuneCmd(env),
		NewDotCmd(env),
		NewZonesCmd(env),
		NewEventsCmd(env),
	)
	return root
}
