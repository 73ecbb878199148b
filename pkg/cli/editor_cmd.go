package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEditorCmd(env *cliEnv) *cobra.Command {
	var (
		principal    string
		dataSourceID int64
	)

	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Check whether a principal may open the native query editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEditor(cmd, env, principal, dataSourceID)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal identifier (required)")
	cmd.Flags().Int64Var(&dataSourceID, "data-source", 0, "Data source ID (required)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("data-source")

	return cmd
}

type editorOutput struct {
	CanOpen bool `json:"can_open"`
}

func runEditor(cmd *cobra.Command, env *cliEnv, principal string, dataSourceID int64) error {
	gate, _, closeFn, err := env.openGate()
	if err != nil {
		return err
	}
	defer closeFn()

	canOpen, err := gate.CanOpenNativeEditor(cmd.Context(), principal, dataSourceID)
	if err != nil {
		return err
	}
	return env.print(cmd, editorOutput{CanOpen: canOpen}, fmt.Sprintf("can_open: %t", canOpen))
}
