package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ALEYI17/InfraSight_avx/internal/cgroups"
	"github.com/ALEYI17/InfraSight_avx/internal/collector"
	"github.com/ALEYI17/InfraSight_avx/internal/config"
	"github.com/ALEYI17/InfraSight_avx/internal/loaders"
	"github.com/ALEYI17/InfraSight_avx/internal/metrics"
	"github.com/ALEYI17/InfraSight_avx/internal/probe"
	"github.com/ALEYI17/InfraSight_avx/pkg/logutil"
	"github.com/ALEYI17/InfraSight_avx/pkg/types"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logutil.InitLogger()

	logger := logutil.GetLogger()
	defer logger.Sync()

	configPath := pflag.String("config", "", "Path to YAML config file")
	metricsAddress := pflag.String("metrics-address", "", "Listen address for /metrics")
	bpfPath := pflag.String("bpf-path", "", "Path to the compiled avx512 BPF object")
	pflag.Parse()

	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigch
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Error loading config", zap.Error(err))
	}
	if *metricsAddress != "" {
		cfg.MetricsAddress = *metricsAddress
	}
	if *bpfPath != "" {
		cfg.BpfObjectPath = *bpfPath
	}

	logger.Info("Starting AVX-512 agent", zap.String("node", cfg.Nodename))

	maps := probe.NewMapsWithCapacity(cfg.CgroupCapacity, cfg.CPUCapacity)

	var lds []types.Avx_loaders

	for _, program := range cfg.EnableProbes {
		if loaderInstance, err := loaders.NewEbpfAvxLoaders(program, cfg.BpfObjectPath, maps); err == nil {
			logger.Info("Loaded tracer:", zap.String("Loader", program))
			defer loaderInstance.Close()
			lds = append(lds, loaderInstance)
			continue
		} else {
			logger.Error("error to load tracer", zap.String("program", program), zap.Error(err))
		}
	}

	if len(lds) == 0 {
		logger.Fatal("No tracer could be loaded")
	}
	logger.Info("Loader(s) created successfully")

	registry := prometheus.NewRegistry()
	resolver := cgroups.NewCgroupID(cfg.CgroupV2Path)
	registry.MustRegister(collector.NewAvxCollector(maps, resolver))

	server := metrics.NewServer(cfg.MetricsAddress, registry)

	g, gctx := errgroup.WithContext(ctx)
	for _, ld := range lds {
		g.Go(func() error {
			return ld.Run(gctx)
		})
	}
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		collector.RunLivenessLogger(gctx, maps, cfg.LivenessInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Error running agent", zap.Error(err))
		return
	}
	logger.Info("Agent finished running")
}
