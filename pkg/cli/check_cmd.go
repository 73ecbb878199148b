package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
)

func newCheckCmd(env *cliEnv) *cobra.Command {
	var (
		principal    string
		dataSourceID int64
	)

	cmd := &cobra.Command{
		Use:   "check <query>",
		Short: "Check whether a principal may execute a native query",
		Example: `  # Check a query for analyst1 against data source 1
  permctl check --principal analyst1 --data-source 1 "SELECT * FROM orders"

  # JSON output
  permctl check --principal analyst1 --data-source 1 --json "SELECT * FROM orders"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, env, principal, dataSourceID, args[0])
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal identifier (required)")
	cmd.Flags().Int64Var(&dataSourceID, "data-source", 0, "Data source ID (required)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("data-source")

	return cmd
}

type checkOutput struct {
	Allowed            bool     `json:"allowed"`
	Reason             string   `json:"reason"`
	UnauthorizedTables []string `json:"unauthorized_tables,omitempty"`
}

func runCheck(cmd *cobra.Command, env *cliEnv, principal string, dataSourceID int64, query string) error {
	gate, _, closeFn, err := env.openGate()
	if err != nil {
		return err
	}
	defer closeFn()

	decision, err := gate.CheckNativeQuery(cmd.Context(), domain.NativeQueryRequest{
		Principal:    principal,
		DataSourceID: dataSourceID,
		Query:        query,
	})
	if err != nil {
		return err
	}

	out := checkOutput{Allowed: decision.Allowed(), Reason: decision.Reason}
	for _, tbl := range decision.UnauthorizedTables {
		out.UnauthorizedTables = append(out.UnauthorizedTables, tbl.QualifiedName())
	}

	plain := fmt.Sprintf("%s: %s", outcomeWord(decision), decision.Reason)
	if len(out.UnauthorizedTables) > 0 {
		plain += " (" + strings.Join(out.UnauthorizedTables, ", ") + ")"
	}
	return env.print(cmd, out, plain)
}

func outcomeWord(d domain.Decision) string {
	if d.Allowed() {
		return "ALLOW"
	}
	return "DENY"
}
