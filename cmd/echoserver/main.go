package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coactor/machine/pkg/admin"
	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/config"
	"github.com/coactor/machine/pkg/echo"
	"github.com/coactor/machine/pkg/logging"
	"github.com/coactor/machine/pkg/tracing"
)

func main() {
	addr := flag.String("addr", "", "TCP address to echo on (overrides config file; default 127.0.0.1:9090)")
	adminAddr := flag.String("admin-addr", "127.0.0.1:9091", "address for the /status and /metrics admin surface (empty disables it)")
	threads := flag.Int("threads", 0, "executor pool width (overrides config file; 0 = runtime.NumCPU())")
	jsonLogs := flag.Bool("json-logs", false, "emit structured JSON logs instead of plain text (overrides config file)")
	configPath := flag.String("config", "", "optional YAML/JSON settings file (see pkg/config.Settings), services.echo tunes this binary")
	trace := flag.Bool("trace", false, "export adapter and netcore spans to stdout")
	flag.Parse()

	resolvedAddr := "127.0.0.1:9090"
	resolvedThreads := 0
	resolvedJSONLogs := false

	if *configPath != "" {
		settings, err := config.LoadSettings(*configPath)
		if err != nil {
			logging.Default.Errorf("load config %s: %v", *configPath, err)
			os.Exit(1)
		}
		resolvedJSONLogs = settings.JSONLogs
		if svc, ok := settings.Services["echo"]; ok {
			if svc.Addr != "" {
				resolvedAddr = svc.Addr
			}
			if svc.Threads != 0 {
				resolvedThreads = svc.Threads
			}
		}
		logging.Default.Infof("loaded settings from %s (instance %s, env %s)", *configPath, settings.InstanceID, settings.Env)
	}

	if *addr != "" {
		resolvedAddr = *addr
	}
	if *threads != 0 {
		resolvedThreads = *threads
	}
	if *jsonLogs {
		resolvedJSONLogs = true
	}

	logger := logging.Default
	if resolvedJSONLogs {
		logger = logging.New(logging.Config{JSONOutput: true})
	}

	if *trace {
		shutdown, err := tracing.Init(context.Background(), "echoserver")
		if err != nil {
			logger.Errorf("tracing init: %v", err)
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	pool := concurrency.NewExecutorPool(concurrency.PoolConfig{
		ThreadCount:          resolvedThreads,
		BindExecutorToThread: true,
		Logger:               logger,
	})

	svc := echo.NewService(pool, logger)
	if err := svc.Start(); err != nil {
		logger.Errorf("start: %v", err)
		os.Exit(1)
	}

	var adminSrv *admin.Server
	if *adminAddr != "" {
		adminSrv = admin.NewServer(*adminAddr, svc, pool, logger)
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil {
				logger.Warnf("admin surface stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := svc.Listen(ctx, resolvedAddr)
	cancel()
	if err != nil {
		logger.Errorf("listen %s: %v", resolvedAddr, err)
		os.Exit(1)
	}
	logger.Infof("echo service listening on %s", resolvedAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Infof("draining, %d connection(s) still open", svc.ConnCount())
	if err := svc.Drain(); err != nil {
		logger.Warnf("drain: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) && !svc.IsDrained() {
		time.Sleep(100 * time.Millisecond)
	}

	if err := svc.Stop(); err != nil {
		logger.Warnf("stop: %v", err)
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(); err != nil {
			logger.Warnf("admin shutdown: %v", err)
		}
	}
	if err := pool.Shutdown(context.Background()); err != nil {
		logger.Warnf("pool shutdown: %v", err)
	}
}
