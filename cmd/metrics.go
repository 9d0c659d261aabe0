package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"shift-scheduler/config"
	"shift-scheduler/logger"
	"shift-scheduler/metrics"
)

// serveMetrics exposes the registry on addr in the background.
func serveMetrics(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	go func() {
		log.Infof("Metrics server listening on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
}

// finishMetrics pushes to the Pushgateway and/or keeps the process alive for
// scraping, as configured.
func finishMetrics(ctx context.Context, cfg config.MetricsConfig, log logger.Logger) error {
	if cfg.PushURL != "" {
		if err := push.New(cfg.PushURL, cfg.Job).Gatherer(metrics.Registry).PushContext(ctx); err != nil {
			log.Errorf("Error pushing to Pushgateway: %v", err)
		} else {
			log.Infof("Metrics successfully pushed to Pushgateway")
		}
	}

	if cfg.Wait && cfg.Addr != "" {
		log.Infof("Process kept alive for metric scraping. Press Ctrl+C to exit.")
		<-ctx.Done()
		log.Infof("Exiting...")
	} else if cfg.Addr != "" && cfg.PushURL == "" {
		// Small delay to allow final scrape if not waiting explicitly
		// but typically batch jobs should use pushgateway or wait
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
