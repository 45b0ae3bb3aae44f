package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aetherbrowser/aether/internal/interceptor"
	"github.com/aetherbrowser/aether/internal/logging"
	"github.com/aetherbrowser/aether/internal/metrics"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	defaultBypassTTL  = time.Minute
)

var (
	serveListen        string
	serveMetricsListen string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the filtering HTTP proxy",
	Long: `Start an HTTP forward proxy that refuses blocked requests.

Plain HTTP requests get a 403 when blocked. HTTPS CONNECT tunnels are
judged on "https://host:port/".

Unless the metrics address is empty, it serves:
  /metrics   Prometheus metrics
  /bypass    POST url=<url>[&ttl=<duration>] lets one blocked request through

Example:
  curl -d url=https://ads.example.com/banner.js http://127.0.0.1:9118/bypass`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "proxy listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveMetricsListen, "metrics-listen", "", "metrics listen address (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	ctx, stop := signal.NotifyContext(app.Ctx(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Component(ctx, "serve")

	cfg := app.Config.Proxy
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveMetricsListen != "" {
		cfg.MetricsListen = serveMetricsListen
	}

	filter, err := app.NewFilter(ctx)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	recorder.SetRules(filter.RuleSet().Len())

	bypass := interceptor.NewBypassRegistry()
	icpt, err := interceptor.New(ctx, filter, interceptor.Config{
		CacheSize: cfg.DecisionCacheSize,
		Bypass:    bypass,
		Metrics:   recorder,
	})
	if err != nil {
		return err
	}
	icpt.OnBlock(func(ev interceptor.BlockEvent) {
		recorder.ObserveBlock(ev.Method)
	})

	proxy := interceptor.NewProxy(ctx, icpt, nil, time.Duration(cfg.DialTimeoutSeconds)*time.Second)

	servers := []*http.Server{{
		Addr:              cfg.Listen,
		Handler:           proxy,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
	if cfg.MetricsListen != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           controlMux(recorder, bypass),
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Str("addr", srv.Addr).Msg("shutdown failed")
			}
		}
		return nil
	})

	return g.Wait()
}

// controlMux serves metrics and one-time bypasses next to the proxy.
func controlMux(recorder *metrics.Recorder, bypass *interceptor.BypassRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.Handle("/bypass", interceptor.BypassHandler(bypass, defaultBypassTTL))
	return mux
}
