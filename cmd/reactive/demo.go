package main

import (
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/pkg/scenario"
)

//go:embed demo.yaml
var demoScenario []byte

func demoCmd(a *app) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in demo scenario",
		Long: `Run a built-in scenario that shows computed values, effects, a manually
scheduled effect and a rejected readonly write, and print its trace.

Use --show to print the scenario file instead, as a starting point for
your own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if show {
				_, err := out.Write(demoScenario)
				return err
			}

			s, err := scenario.Parse(demoScenario)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# %s\n", s.Name)
			_, err = scenario.Run(cmd.Context(), s,
				scenario.WithLogger(a.logger),
				scenario.WithTraceWriter(out),
			)
			return err
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print the demo scenario file")

	return cmd
}
