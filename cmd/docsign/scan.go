package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"docsign/internal/reconcile"
)

var errInconsistent = errors.New("registry and file store disagree")

func scanCmd() *cobra.Command {
	var strict bool

	command := &cobra.Command{
		Use:   "scan",
		Short: "Compare registry rows with the files in the store",
		// The report goes to stdout; usage text would corrupt it.
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			rep, err := reconcile.Run(cmd.Context(), rt.svc)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if strict && !rep.Consistent() {
				return errInconsistent
			}
			return nil
		},
	}
	command.Flags().BoolVar(&strict, "strict", false, "exit non-zero when rows and files disagree")
	return command
}
