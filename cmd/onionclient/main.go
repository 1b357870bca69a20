// Onion LSRPC client
// Builds one onion-encrypted request, sends it to a fetched entry
// hop, and prints the raw response.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oxen-lsrpc/onion-client/internal/logging"
	"github.com/oxen-lsrpc/onion-client/internal/metrics"
	"github.com/oxen-lsrpc/onion-client/pkg/directory"
	"github.com/oxen-lsrpc/onion-client/pkg/onionclient"
	"github.com/oxen-lsrpc/onion-client/pkg/transport"
	"github.com/oxen-lsrpc/onion-client/pkg/types"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	method := flag.String("method", "get_message", "JSON-RPC method to invoke at the destination")
	params := flag.String("params", "{}", "JSON-RPC params, as a JSON object")
	destHost := flag.String("host", "", "Destination host (required)")
	destPort := flag.Int("port", 443, "Destination port")
	destProtocol := flag.String("protocol", "https", "Destination protocol: http or https")
	destTarget := flag.String("target", "/", "Destination target path")
	flag.Parse()

	if *showVersion {
		println("Onion LSRPC client")
		println("Version:", version)
		println("Build Time:", buildTime)
		println("Git Commit:", gitCommit)
		os.Exit(0)
	}

	cfg := onionclient.DefaultConfig()
	if *configPath != "" {
		loadedCfg, err := onionclient.LoadConfig(*configPath)
		if err != nil {
			println("failed to load configuration:", err.Error())
			os.Exit(1)
		}
		cfg = loadedCfg
	}
	cfg.ApplyEnvironment()

	log := logging.NewFromLogLevel(cfg.Logging.Level)
	log.Info().
		Str("version", version).
		Int("path_length", cfg.Path.Length).
		Msg("starting onion client")

	m := metrics.New(cfg.Metrics.Namespace)

	hc := metrics.NewHealthChecker(version)
	hc.RegisterCheck("memory", metrics.MemoryCheck(512*1024*1024))
	var ready atomic.Bool

	if cfg.Metrics.Enabled {
		go serveMetrics(log, m, hc, &ready, cfg.Metrics)
	}

	if *destHost == "" {
		log.Fatal().Msg("-host is required")
	}

	var rawParams map[string]interface{}
	if err := json.Unmarshal([]byte(*params), &rawParams); err != nil {
		log.Fatal().Err(err).Msg("invalid -params JSON")
	}

	destination := types.Destination{
		Host:     *destHost,
		Port:     *destPort,
		Protocol: *destProtocol,
		Target:   *destTarget,
	}
	payload := map[string]interface{}{
		"method": *method,
		"params": rawParams,
	}

	dirClient := directory.NewClient(
		cfg.Directory.SeedNodes,
		cfg.Transport.Timeout(),
		cfg.Directory.MaxAttempts,
		cfg.Directory.BackoffInterval(),
		log,
		m,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := dirClient.FetchSnapshot(ctx, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch service-node directory")
	}
	log.Info().Int("count", len(snap.Nodes)).Time("fetched_at", snap.FetchedAt).Msg("fetched service-node directory")

	builder := onionclient.NewBuilder(cfg.Path.Length, log, m)
	builder.SetSnapshot(snap)
	ready.Store(true)

	envelope, err := builder.Build(nil, payload, destination)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build onion envelope")
	}
	log.Info().Int("wrapper_len", len(envelope.Bytes)).Msg("built onion envelope")

	rateLimitRPS := cfg.RateLimit.RequestsPerSecond
	if !cfg.RateLimit.Enabled {
		rateLimitRPS = 0
	}
	tr := transport.New(transport.Config{
		Timeout:        cfg.Transport.Timeout(),
		TLSVerify:      cfg.Transport.TLSVerify,
		RateLimitRPS:   rateLimitRPS,
		RateLimitBurst: cfg.RateLimit.BurstSize,
	}, log, m)
	defer tr.Close()

	resp, err := tr.Send(ctx, envelope)
	if err != nil {
		log.Fatal().Err(err).Msg("transport send failed")
	}

	log.Info().Int("status", resp.StatusCode).Int("body_len", len(resp.Body)).Msg("received response")
	os.Stdout.Write(resp.Body)
}

func serveMetrics(log *logging.Logger, m *metrics.Metrics, hc *metrics.HealthChecker, ready *atomic.Bool, cfg onionclient.MetricsConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())
	mux.Handle("/healthz", hc.HealthHandler())
	mux.Handle("/livez", hc.LivenessHandler())
	mux.Handle("/readyz", hc.ReadinessHandler(ready.Load))

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info().Str("addr", addr).Str("path", cfg.Path).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
