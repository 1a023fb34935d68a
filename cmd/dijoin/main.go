// Command dijoin runs the join jobs described by a JSON job file: every job
// reads a primary delimited source, inner-joins it against its secondaries on
// the key columns, and writes joined records as TSV, encoded values or rows
// in a database table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ditools/internal/config"
	"ditools/internal/metrics"
	"ditools/internal/metrics/datadog"
	"ditools/internal/metrics/prompush"

	// every storage backend is compiled in; the job file picks one.
	_ "ditools/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		workers           int
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "jobs.json", "job file JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address (env DD_DOGSTATSD_URL)")
	flag.IntVar(&workers, "workers", 0, "jobs run at once; overrides runtime.workers")
	flag.BoolVar(&validate, "validate", false, "validate the job file and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	f, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(f)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("job file is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("job file is valid: %v", cfgPath)
		os.Exit(0)
	}
	if workers > 0 {
		f.Runtime.Workers = workers
	}

	closeMetrics := setupMetrics(metricsBackendFlg, pushGatewayURLFlg, statsdAddrFlg, *verbose)

	start := time.Now()
	err = runJobs(context.Background(), f, *verbose)
	closeMetrics()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("%d job(s) completed in %s", len(f.Jobs), time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics installs the selected backend (flag, then env) and returns a
// function that flushes it.
func setupMetrics(backendName, gwURL, statsdAddr string, verbose bool) func() {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}

	switch strings.ToLower(backendName) {
	case "pushgateway":
		gwURL = firstNonEmpty(gwURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend("dijoin", gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v", gwURL, backendName)
		metrics.SetBackend(b)
		return flush

	case "datadog":
		addr := firstNonEmpty(statsdAddr, os.Getenv("DD_DOGSTATSD_URL"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "ditools."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		metrics.SetBackend(b)
		return func() {
			flush()
			if err := b.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
