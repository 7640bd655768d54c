package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"pgasync"
	"pgasync/internal/pgmetrics"
)

var metricsAddr string

var connectCmd = &cobra.Command{
	Use:   "connect <dsn>",
	Short: "Open a connection and start an interactive SQL REPL",
	Long: `connect dials a PostgreSQL backend and drops into a REPL where each
';'-terminated statement you type runs as a standalone autocommit
statement (or, with --autocommit=false, inside an implicit transaction
committed once it finishes).

DSN grammar:

  <alias>=tcp://[user[:password]@]host[:port][[database]]
  <alias>=socket://[user[:password]@]path[[database]]`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090); disabled if empty")
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := pgasync.ParseDSN(args[0])
	if err != nil {
		return err
	}

	logger := newSlogger(cliCfg.LogLevel, verbose)

	var collector *pgmetrics.Collector
	if metricsAddr != "" {
		collector = pgmetrics.New()
		collector.MustRegister(prometheus.DefaultRegisterer)
		go serveMetrics(metricsAddr)
	}

	ready := make(chan error, 1)

	opts := []pgasync.Option{
		pgasync.Logger(logger),
		pgasync.AutoCommit(cliCfg.AutoCommit),
		pgasync.OnReady(func(err error) { ready <- err }),
		pgasync.OnConnectionError(func(err error) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("connection lost: "+err.Error()))
		}),
		pgasync.OnNotice(func(notice pgasync.DBNotice) {
			fmt.Fprintln(os.Stderr, infoStyle.Render("NOTICE: "+notice.Message))
		}),
	}
	if collector != nil {
		opts = append(opts, pgasync.Metrics(collector))
	}

	conn, err := pgasync.Dial(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	if err := <-ready; err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer conn.Terminate()

	return newREPL(conn, os.Stdin, os.Stdout).run(ctx)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	_ = http.ListenAndServe(addr, mux) //nolint:gosec // operator-controlled debug endpoint
}
