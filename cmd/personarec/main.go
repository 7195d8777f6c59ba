package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/personarec/internal/config"
	"github.com/kailas-cloud/personarec/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var env string

	root := &cobra.Command{
		Use:           "personarec",
		Short:         "Persona-aware venue recommendations",
		Version:       version.Version + " (" + version.Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env file is fine.
			_ = godotenv.Load()
			if !cmd.Flags().Changed("env") {
				env = config.GetEnv()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&env, "env", "local", "configuration environment (local, dev, prod); defaults to $ENV")

	root.AddCommand(
		newServeCmd(&env),
		newIngestCmd(&env),
		newSeedPersonasCmd(&env),
	)
	return root
}
