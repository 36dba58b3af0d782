// Serves a directory tree over the commit-log backend protocol, with a
// Prometheus /metrics endpoint and a background sweeper for staging files
// abandoned by crashed writers.

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
	"google.golang.org/grpc"

	"github.com/dattu/commitlog_store/pkg/backend"
	"github.com/dattu/commitlog_store/pkg/config"
	"github.com/dattu/commitlog_store/pkg/logstore"
	"github.com/dattu/commitlog_store/pkg/remote"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (optional)")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	logger := logrus.New()
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	logstore.RegisterMetrics(prometheus.DefaultRegisterer)

	// /metrics endpoint
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		http.Handle("/metrics", promhttp.Handler())
		logger.Infof("Prometheus metrics on %s/metrics", addr)
		logger.Fatal(http.ListenAndServe(addr, nil))
	}()

	fs, closeFS, err := openBackend(cfg)
	if err != nil {
		logger.Fatalf("backend: %v", err)
	}
	defer closeFS()

	sweeper := logstore.NewSweeper(fs, cfg.Sweep.Dirs, cfg.Sweep.TTL, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	lis, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	remote.Register(grpcServer, fs, logger)
	logger.Infof("commit-log backend %s on %s  sweep ttl=%s dirs=%v",
		cfg.Backend.Kind, cfg.Server.ListenAddr, cfg.Sweep.TTL, cfg.Sweep.Dirs)
	if err := grpcServer.Serve(lis); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}

func openBackend(cfg *config.Config) (backend.FileSystem, func(), error) {
	switch cfg.Backend.Kind {
	case "local":
		if err := os.MkdirAll(cfg.Backend.Datadir, 0o755); err != nil {
			return nil, nil, err
		}
		return backend.NewLocal(cfg.Backend.Datadir), func() {}, nil
	case "bolt":
		db, err := bolt.Open(cfg.Backend.DB, 0o600, &bolt.Options{Timeout: 2 * time.Second})
		if err != nil {
			return nil, nil, err
		}
		fs, err := backend.NewBolt(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return fs, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}
