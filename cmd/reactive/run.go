package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/archive"
	"github.com/vango-dev/reactive/pkg/scenario"
)

func runCmd(a *app) *cobra.Command {
	var (
		goldenDir string
		update    bool
		quiet     bool
		location  string
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Replay scenario files",
		Long: `Replay scenario files against the reactive engine and print the trace.

With --golden, each trace is compared with <dir>/<name>.golden and the
command fails on the first difference. --update rewrites the golden files
instead.

With --archive (or archive.location in reactive.json), every run is stored
as a JSON record in a directory or an s3://bucket/prefix location. Failed
runs are archived too.

Examples:
  reactive run testdata/double.yaml
  reactive run --golden testdata/golden testdata/*.yaml
  reactive run --golden testdata/golden --update testdata/*.yaml
  reactive run --archive s3://ci-runs/reactive testdata/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if update && goldenDir == "" {
				return errors.New("E401").WithDetail("--update needs --golden")
			}
			out := cmd.OutOrStdout()

			if location == "" {
				location = a.cfg.Archive.Location
			}
			var store archive.Store
			if location != "" {
				var err error
				if store, err = openArchive(a, location); err != nil {
					return err
				}
			}

			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					return err
				}

				opts := []scenario.Option{scenario.WithLogger(a.logger)}
				if !quiet {
					fmt.Fprintf(out, "# %s\n", s.Name)
					opts = append(opts, scenario.WithTraceWriter(out))
				}

				res, err := scenario.Run(cmd.Context(), s, opts...)
				if store != nil && res != nil {
					key, putErr := store.Put(cmd.Context(), archive.FromResult(res, err))
					if putErr != nil {
						a.logger.Warn("archive: put failed", "scenario", res.Name, "error", putErr)
					} else if !quiet {
						fmt.Fprintf(out, "# archived %s\n", key)
					}
				}
				if err != nil {
					return err
				}
				if goldenDir == "" {
					continue
				}
				if err := checkGolden(goldenDir, res, update); err != nil {
					return err
				}
				if update {
					fmt.Fprintf(out, "# updated %s\n", goldenPath(goldenDir, res.Name))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&goldenDir, "golden", "g", "", "Directory of golden traces to compare against")
	cmd.Flags().BoolVar(&update, "update", false, "Rewrite golden traces instead of comparing")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print traces")
	cmd.Flags().StringVar(&location, "archive", "", "Directory or s3://bucket/prefix to store run records in")

	return cmd
}

func goldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// checkGolden compares the trace of res with its golden file, or rewrites the
// file when update is set.
func checkGolden(dir string, res *scenario.Result, update bool) error {
	path := goldenPath(dir, res.Name)
	got := res.Text()

	if update {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		return os.WriteFile(path, got, 0644)
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return errors.New("E303").
			WithDetail(fmt.Sprintf("No golden trace for %q.", res.Name)).
			WithSuggestion("Run with --update to write it").
			Wrap(err)
	}
	if !bytes.Equal(got, want) {
		return errors.New("E303").
			WithDetail(fmt.Sprintf("Trace of %q differs from %s.", res.Name, path))
	}
	return nil
}
