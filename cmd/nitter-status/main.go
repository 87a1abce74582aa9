// Command nitter-status runs the fleet monitoring daemon: it periodically
// discovers, health-checks, and samples stats from a fleet of nitter mirror
// instances, publishes a ranked snapshot, evaluates alert rules, and serves
// both over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/0xpr03/nitter-status/pkg/alerts"
	"github.com/0xpr03/nitter-status/pkg/api"
	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/email"
	"github.com/0xpr03/nitter-status/pkg/monitoring"
	"github.com/0xpr03/nitter-status/pkg/ranking"
	"github.com/0xpr03/nitter-status/pkg/scanner"
	"github.com/0xpr03/nitter-status/pkg/store"
	"github.com/0xpr03/nitter-status/pkg/versioncheck"

	"log/slog"
)

const (
	_shutdownPeriod   = 10 * time.Second
	_dbConnectTimeout = 10 * time.Second
)

var (
	GitCommit   string
	envFileFlag = flag.String("env", "", "Path to .env file, 'stdin' or empty")
	versionFlag = flag.Bool("version", false, "Print version and exit")
	env         *common.EnvMap
)

func listenAddress(cfg common.ConfigStore) string {
	host := cfg.Get(common.HostKey).Value()
	if host == "" {
		host = "localhost"
	}

	port := cfg.Get(common.PortKey).Value()
	if port == "" {
		port = "8080"
	}

	return net.JoinHostPort(host, port)
}

func createListener(ctx context.Context, cfg common.ConfigStore) (net.Listener, error) {
	address := listenAddress(cfg)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to listen", "address", address, common.ErrAttr(err))
		return nil, err
	}
	return listener, nil
}

// run wires every component together and blocks until ctx's signal handler
// triggers a graceful shutdown.
func run(ctx context.Context, cfg common.ConfigStore, stderr io.Writer, listener net.Listener) error {
	stage := cfg.Get(common.StageKey).Value()
	verbose := config.AsBool(ctx, cfg.Get(common.VerboseKey))
	logLevel := common.SetupLogs(stage, verbose)

	dbCtx, cancel := context.WithTimeout(ctx, _dbConnectTimeout)
	defer cancel()

	db, err := store.Open(dbCtx, cfg.Get(common.SqlitePathKey).Value())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	engine, err := versioncheck.NewEngine(ctx, cfg.Get(common.GitScratchFolderKey).Value(),
		cfg.Get(common.SourceGitURLKey).Value(), cfg.Get(common.SourceGitBranchKey).Value())
	if err != nil {
		return fmt.Errorf("opening version-check engine: %w", err)
	}

	metrics := monitoring.NewService()
	mailer := email.NewMailSender(cfg)

	rb := ranking.NewBuilder(db, engine, metrics, cfg)

	sc, err := scanner.New(db, cfg, metrics, rb, engine)
	if err != nil {
		return fmt.Errorf("building scanner: %w", err)
	}

	evaluator := alerts.NewEvaluator(db, mailer, cfg, metrics)
	alertsJob := alerts.NewJob(evaluator, cfg)
	cleanupJob := scanner.NewCleanupJob(db, cfg)

	apiServer := api.NewServer(db, rb, metrics, cfg)

	updateConfigFunc := func(ctx context.Context) {
		cfg.Update(ctx)
		verboseLogs := config.AsBool(ctx, cfg.Get(common.VerboseKey))
		common.SetLogLevel(logLevel, verboseLogs)
	}

	router := http.NewServeMux()
	apiServer.Setup(router)
	router.HandleFunc("/", common.CatchAll)

	ongoingCtx, stopOngoingGracefully := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1024 * 1024,
		BaseContext: func(_ net.Listener) context.Context {
			return ongoingCtx
		},
	}

	// Initial rebuild so the first /api/v1/instances call doesn't see an
	// empty snapshot before the first sweep completes.
	if rerr := rb.Rebuild(ctx); rerr != nil {
		slog.ErrorContext(ctx, "initial ranking rebuild failed", common.ErrAttr(rerr))
	}

	scanCtx, stopScanning := context.WithCancel(context.Background())
	go sc.Run(common.CopyTraceID(ctx, scanCtx))
	go common.RunPeriodicJob(common.CopyTraceID(ctx, scanCtx), alertsJob)
	go common.RunPeriodicJob(common.CopyTraceID(ctx, scanCtx), cleanupJob)

	quit := make(chan struct{})
	go func(ctx context.Context) {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer func() {
			signal.Stop(signals)
			close(signals)
		}()
		for {
			sig, ok := <-signals
			if !ok {
				return
			}
			slog.DebugContext(ctx, "Received signal", "signal", sig)
			switch sig {
			case syscall.SIGHUP:
				if uerr := env.Update(); uerr != nil {
					slog.ErrorContext(ctx, "Failed to update environment", common.ErrAttr(uerr))
				}
				updateConfigFunc(ctx)
			case syscall.SIGINT, syscall.SIGTERM:
				close(quit)
				return
			}
		}
	}(common.TraceContext(context.Background(), "signal_handler"))

	go func() {
		slog.InfoContext(ctx, "Listening", "address", listener.Addr().String(), "version", GitCommit, "stage", stage)
		if serr := httpServer.Serve(listener); serr != nil && serr != http.ErrServerClosed {
			slog.ErrorContext(ctx, "Error serving", common.ErrAttr(serr))
		}
	}()

	var localServer *http.Server
	if localAddress := cfg.Get(common.LocalAddressKey).Value(); len(localAddress) > 0 {
		localRouter := http.NewServeMux()
		metrics.Setup(localRouter)
		localRouter.Handle(http.MethodGet+" /"+common.LiveEndpoint, common.Recovered(http.HandlerFunc(liveHandler)))
		localRouter.Handle(http.MethodGet+" /"+common.ReadyEndpoint, common.Recovered(readyHandler(db, metrics)))
		localServer = &http.Server{
			Addr:    localAddress,
			Handler: localRouter,
		}
		go func() {
			slog.InfoContext(ctx, "Serving local API", "address", localServer.Addr)
			if lerr := localServer.ListenAndServe(); lerr != nil && lerr != http.ErrServerClosed {
				slog.ErrorContext(ctx, "Error serving local API", common.ErrAttr(lerr))
			}
		}()
	} else {
		slog.DebugContext(ctx, "Skipping serving local API")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-quit
		slog.DebugContext(ctx, "Shutting down gracefully")
		stopScanning()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownPeriod)
		defer cancel()
		httpServer.SetKeepAlivesEnabled(false)
		serr := httpServer.Shutdown(shutdownCtx)
		stopOngoingGracefully()
		if serr != nil {
			slog.ErrorContext(ctx, "Failed to shutdown gracefully", common.ErrAttr(serr))
			fmt.Fprintf(stderr, "error shutting down http server gracefully: %s\n", serr)
		}
		if localServer != nil {
			localServer.Close()
		}
		slog.DebugContext(ctx, "Shutdown finished")
	}()

	wg.Wait()
	return nil
}

func liveHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// readyHandler reports unready if the sqlite connection can't be pinged,
// also feeding that result into the platform health gauge.
func readyHandler(db *store.Store, metrics *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := db.DB().PingContext(ctx)
		metrics.ObserveHealth(err == nil)
		if err != nil {
			slog.ErrorContext(ctx, "readiness check failed", common.ErrAttr(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Print(GitCommit)
		return
	}

	var err error
	env, err = common.NewEnvMap(*envFileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
	}

	cfg := config.NewEnvConfig(env.Get)

	ctx := common.TraceContext(context.Background(), "main")
	listener, lerr := createListener(ctx, cfg)
	if lerr != nil {
		os.Exit(1)
	}

	if err := run(ctx, cfg, os.Stderr, listener); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}
}
