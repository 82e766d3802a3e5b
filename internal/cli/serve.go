package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/slotreason/internal/config"
	"github.com/roach88/slotreason/internal/metrics"
	"github.com/roach88/slotreason/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Config string
	Addr   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured pools over HTTP",
		Long: `Build the pools described by the service configuration and serve them
over HTTP until interrupted.

Example:
  slotreason serve --config service.yaml --addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "service configuration file (required)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := slog.Default()

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err)
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rt, err := cfg.Build(config.WithLogger(logger), config.WithMetrics(m))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err)
	}
	defer rt.Close()

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithSuggesters(rt.Suggesters),
	}
	if cfg.Server.MetricsEnabled() {
		srvOpts = append(srvOpts, server.WithGatherer(reg))
	}

	formatter.VerboseLog("serving %d pool(s) on %s", len(rt.Registry.Names()), addr)
	if err := server.New(rt.Registry, srvOpts...).Run(ctx, addr); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	return nil
}
