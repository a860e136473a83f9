// Package main provides pathagarctl, the maintenance CLI for Amar Pathagar.
//
// It opens the same stores as the server, so run it while the server is
// stopped.
//
// Usage:
//
//	pathagarctl create-admin --username librarian --email lib@example.org
//	pathagarctl seed --admin librarian --file books.yaml
//	pathagarctl verify-ledger
//	pathagarctl reindex
package main

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/di"
)

type rootOptions struct {
	dataPath string
	dbPath   string
	envFile  string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "pathagarctl",
		Short:         "Maintenance commands for an Amar Pathagar server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.dataPath, "data-path", "", "Base path for data storage (default: $DATA_PATH or ~/AmarPathagar/data)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db-path", "", "Path to the SQLite database")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to .env file")

	root.AddCommand(
		newCreateAdminCommand(opts),
		newSeedCommand(opts),
		newVerifyLedgerCommand(opts),
		newReindexCommand(opts),
	)
	return root
}

// container loads config the way the server does and returns a container
// whose services are created lazily, so commands only open what they use.
func (o *rootOptions) container() (*do.RootScope, error) {
	args := []string{"-env-file", o.envFile}
	if o.dataPath != "" {
		args = append(args, "-data-path", o.dataPath)
	}
	if o.dbPath != "" {
		args = append(args, "-db-path", o.dbPath)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return di.NewContainerWithConfig(cfg), nil
}

// withContainer runs fn and always shuts the container down afterwards.
func (o *rootOptions) withContainer(fn func(injector do.Injector) error) error {
	injector, err := o.container()
	if err != nil {
		return err
	}
	runErr := fn(injector)
	if shutdownErr := injector.Shutdown(); shutdownErr != nil && runErr == nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}
	return runErr
}
