package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

func newTablesCmd(env *cliEnv) *cobra.Command {
	var (
		principal    string
		dataSourceID int64
		min          string
	)

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables a principal can reach at a minimum permission level",
		Example: `  # Tables analyst1 can query natively on data source 1
  permctl tables --principal analyst1 --data-source 1 --min query-builder-and-native`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd, env, principal, dataSourceID, min)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal identifier (required)")
	cmd.Flags().Int64Var(&dataSourceID, "data-source", 0, "Data source ID (required)")
	cmd.Flags().StringVar(&min, "min", string(domain.PermQueryBuilder), "Minimum permission value: query-builder or query-builder-and-native")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("data-source")

	return cmd
}

type tablesOutput struct {
	Tables []string `json:"tables"`
}

func runTables(cmd *cobra.Command, env *cliEnv, principal string, dataSourceID int64, min string) error {
	minValue := domain.PermValue(min)
	if !minValue.Valid() || minValue == domain.PermBlocked {
		return fmt.Errorf("invalid --min value %q", min)
	}

	_, cache, closeFn, err := env.openGate()
	if err != nil {
		return err
	}
	defer closeFn()

	snap, err := cache.Get(cmd.Context(), principal, dataSourceID)
	if err != nil {
		return err
	}

	out := tablesOutput{Tables: []string{}}
	for _, tbl := range snap.Index.TablesWithAtLeast(minValue) {
		out.Tables = append(out.Tables, tbl.QualifiedName())
	}
	plain := strings.Join(out.Tables, "\n")
	if plain == "" {
		plain = "(none)"
	}
	return env.print(cmd, out, plain)
}
