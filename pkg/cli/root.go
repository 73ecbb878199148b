// Package cli implements the permctl command line tool. It evaluates
// native-query permissions directly against a metastore file, without a
// running server.
package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	internaldb "github.com/ArmorCode-Public-Test/metabase/internal/db"
	"github.com/ArmorCode-Public-Test/metabase/internal/db/repository"
	"github.com/ArmorCode-Public-Test/metabase/internal/service"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type cliEnv struct {
	dbPath string
	asJSON bool
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	rootCmd := &cobra.Command{
		Use:           "permctl",
		Short:         "Native-query permission tool",
		Long:          "Evaluates table-granular native-query permissions against a metastore file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&env.dbPath, "db", "permengine_meta.sqlite", "Path to the SQLite metastore")
	rootCmd.PersistentFlags().BoolVar(&env.asJSON, "json", false, "Emit JSON output")

	rootCmd.AddCommand(newCheckCmd(env))
	rootCmd.AddCommand(newEditorCmd(env))
	rootCmd.AddCommand(newTablesCmd(env))
	rootCmd.AddCommand(newTokenCmd())
	return rootCmd
}

// openGate opens the metastore read-only style (single pair) and wires the
// evaluation stack. The caller must Close the returned handles.
func (env *cliEnv) openGate() (*service.QueryGateService, *service.IndexCache, func(), error) {
	writeDB, readDB, err := internaldb.OpenPair(env.dbPath, 2)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := internaldb.Migrate(writeDB); err != nil {
		closePair(writeDB, readDB)
		return nil, nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	permRepo := repository.NewPermissionRepo(writeDB, readDB)
	catalogRepo := repository.NewCatalogRepo(writeDB, readDB)
	auditRepo := repository.NewAuditRepo(writeDB, readDB)

	cache := service.NewIndexCache(permRepo, catalogRepo, logger)
	evaluator := service.NewPolicyEvaluator(cache, logger)
	gate := service.NewQueryGateService(evaluator, auditRepo, logger)

	return gate, cache, func() { closePair(writeDB, readDB) }, nil
}

func closePair(writeDB, readDB *sql.DB) {
	_ = readDB.Close()
	_ = writeDB.Close()
}

func (env *cliEnv) print(cmd *cobra.Command, v interface{}, plain string) error {
	if env.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), plain)
	return err
}
