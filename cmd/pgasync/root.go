package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    bool
	autoCommit bool

	cliCfg *cliConfig
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return 1
	}
	return 0
}

var rootCmd = &cobra.Command{
	Use:           "pgasync",
	Short:         "An asynchronous PostgreSQL wire-protocol client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCLIConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("autocommit") {
			cfg.AutoCommit = autoCommit
		}
		cliCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pgasync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every protocol message")
	rootCmd.PersistentFlags().BoolVar(&autoCommit, "autocommit", true, "run idle-state statements outside a transaction")

	rootCmd.AddCommand(connectCmd)
}
