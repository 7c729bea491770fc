package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ib-77/railyard/internal/config"
	"github.com/ib-77/railyard/internal/logger"
	"github.com/ib-77/railyard/pkg/providers"
	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/core"
	"github.com/ib-77/railyard/pkg/rop/mass"
	"github.com/ib-77/railyard/pkg/rop/orchestrator"
	"github.com/ib-77/railyard/pkg/rop/pool"
	"github.com/ib-77/railyard/pkg/rop/solo"
)

var errItemsFailed = errors.New("one or more items failed or timed out")

type runOptions struct {
	jobs        string
	metricsAddr string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the work items of a jobs file",
		Example: `  railyard run --jobs jobs.yaml
  railyard run --jobs jobs.yaml --config railyard.yaml --metrics-addr :9100
  railyard run --jobs jobs.yaml --set pool.workers=16 --set logging.level=debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.jobs, "jobs", "", "path to the jobs file")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = cmd.MarkFlagRequired("jobs")

	return cmd
}

func runJobs(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	sets := map[string]string{}
	for k, v := range root.sets {
		sets[k] = v
	}
	if opts.metricsAddr != "" {
		sets["metrics.address"] = opts.metricsAddr
	}

	cfg, err := config.NewLoader().WithConfigPath(root.cfgFile).WithCmdArgs(sets).Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging)
	defer func() { _ = log.Sync() }()

	items, err := loadJobs(opts.jobs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *pool.Metrics
	if cfg.Metrics.Address != "" {
		reg := prometheus.NewRegistry()
		metrics = pool.NewMetrics(reg)

		shutdown, err := serveMetrics(cfg.Metrics.Address, reg, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	router := providers.Register(pool.NewRouter[string](), providers.SocketReader{}, nil)
	o := orchestrator.New[string](router, orchestratorOptions(cfg, log, metrics)...)

	consumed := make(chan mass.Counts, 1)
	go func() {
		consumed <- printOutcomes(cmd.OutOrStdout(), o)
	}()

	batchCtx := ctx
	if cfg.Orchestrator.BatchTimeout > 0 {
		batchCtx = core.WithBatchTimeout(ctx, cfg.Orchestrator.BatchTimeout)
	}

	if _, err := o.SubmitBatch(batchCtx, items); err != nil {
		log.Warn("batch submission incomplete", zap.Error(err))
		if !errors.Is(err, rop.ErrPoolSaturated) {
			o.Close()
			<-consumed
			return err
		}
	}

	o.Close()
	summary, drainErr := o.Wait(ctx)
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted while draining: %w", context.Cause(ctx))
	}
	counts := <-consumed

	fmt.Fprintf(cmd.OutOrStdout(), "\nsummary: %d success, %d failure, %d timed out (p50 %s, p99 %s, max %s)\n",
		summary.Success, summary.Failure, summary.TimedOut,
		summary.Latency.P50, summary.Latency.P99, summary.Latency.Max)

	if drainErr != nil {
		log.Warn("drain deadline exceeded", zap.Error(drainErr))
	}
	if counts.Failed() > 0 {
		return errItemsFailed
	}
	return nil
}

func orchestratorOptions(cfg *config.Config, log *zap.Logger, metrics *pool.Metrics) []orchestrator.Option {
	poolOpts := []pool.Option{
		pool.WithWorkers(cfg.Pool.Workers),
		pool.WithCPUWorkers(cfg.Pool.CPUWorkers),
		pool.WithQueueSize(cfg.Pool.QueueSize),
		pool.WithDefaultTimeout(cfg.Pool.DefaultTimeout),
	}
	if metrics != nil {
		poolOpts = append(poolOpts, pool.WithMetrics(metrics))
	}

	return []orchestrator.Option{
		orchestrator.WithPoolOptions(poolOpts...),
		orchestrator.WithPipelineCapacity(cfg.Pipeline.Capacity),
		orchestrator.WithMaxInFlight(cfg.Orchestrator.MaxInFlight),
		orchestrator.WithDrainTimeout(cfg.Orchestrator.DrainTimeout),
		orchestrator.WithLogger(log),
	}
}

// printOutcomes drains the orchestrator, one line per outcome.
func printOutcomes(w io.Writer, o *orchestrator.Orchestrator[string]) mass.Counts {
	var counts mass.Counts
	for range mass.Tee(o.Results(), &counts, func(out rop.Outcome[string]) {
		fmt.Fprintln(w, describe(out))
	}) {
	}
	return counts
}

func describe(out rop.Outcome[string]) string {
	return solo.Finally(context.Background(), out,
		func(_ context.Context, payload string) string {
			return fmt.Sprintf("ok       %s: %s", out.ItemID(), payload)
		},
		func(_ context.Context, err error) string {
			return fmt.Sprintf("failed   %s: %v", out.ItemID(), err)
		},
		func(_ context.Context, err error) string {
			return fmt.Sprintf("timeout  %s: %v", out.ItemID(), err)
		})
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
