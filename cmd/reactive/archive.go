package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/archive"
)

// openArchive opens location with the S3 settings from the config.
func openArchive(a *app, location string) (archive.Store, error) {
	store, err := archive.Open(location, archive.S3Options{
		Region:    a.cfg.Archive.Region,
		Endpoint:  a.cfg.Archive.Endpoint,
		PathStyle: a.cfg.Archive.PathStyle,
	})
	if err != nil {
		return nil, errors.New("E401").WithDetail(err.Error())
	}
	return store, nil
}

func archiveCmd(a *app) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived scenario runs",
		Long: `Inspect scenario runs stored by "reactive run --archive".

Examples:
  reactive archive list --archive runs/
  reactive archive list counter --archive s3://ci-runs/reactive
  reactive archive show counter/01890a5d-ac96-774b-bcce-b302099a8057.json --archive runs/`,
	}

	store := func() (archive.Store, error) {
		loc := location
		if loc == "" {
			loc = a.cfg.Archive.Location
		}
		if loc == "" {
			return nil, errors.New("E401").
				WithDetail("No archive location").
				WithSuggestion("Pass --archive or set archive.location in reactive.json")
		}
		return openArchive(a, loc)
	}

	list := &cobra.Command{
		Use:   "list [scenario]",
		Short: "List archived runs, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			keys, err := s.List(cmd.Context(), name)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <key>",
		Short: "Print an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			rec, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s %s %s\n", rec.Scenario, rec.ID, rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			if len(rec.Trace) > 0 {
				fmt.Fprintln(out, strings.Join(rec.Trace, "\n"))
			}
			if rec.Error != "" {
				fmt.Fprintf(out, "# error: %s\n", rec.Error)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&location, "archive", "", "Directory or s3://bucket/prefix (default from reactive.json)")
	cmd.AddCommand(list, show)
	return cmd
}
