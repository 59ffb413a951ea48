package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/lakescan"
	"github.com/hupe1980/lakescan/cache"
	"github.com/hupe1980/lakescan/filter"
	"github.com/hupe1980/lakescan/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// filterFlags collects repeated -f key=value flags.
type filterFlags filter.Map

func (f filterFlags) String() string {
	return fmt.Sprintf("%v", filter.Map(f))
}

func (f filterFlags) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("filter %q is not key=value", value)
	}
	f[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

func runSample(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	strategy := fs.String("strategy", "auto", "sampling strategy name or auto")
	question := fs.String("question", "", "natural-language question guiding the sample")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one dataset")
	}

	cfg, err := e.config()
	if err != nil {
		return err
	}
	eng, err := cfg.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.GetIntelligentSample(ctx, fs.Arg(0), *strategy, *question)
	if err != nil {
		return err
	}
	if res.IsEmpty() {
		return fmt.Errorf("no data for %q", fs.Arg(0))
	}
	return e.write(res)
}

func runQuery(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	filters := filterFlags{}
	fs.Var(filters, "f", "filter as key=value (repeatable)")
	maxRows := fs.Int("max", 100, "maximum rows to return, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one dataset")
	}

	cfg, err := e.config()
	if err != nil {
		return err
	}
	eng, err := cfg.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.QueryWithFilters(ctx, fs.Arg(0), filter.Map(filters), *maxRows)
	if err != nil {
		return err
	}
	return e.write(res)
}

func runExtract(_ context.Context, e *env, args []string) error {
	fs := e.flags()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("expected a question")
	}
	return e.write(filter.Extract(strings.Join(fs.Args(), " ")))
}

func runPut(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("expected a key and a file")
	}

	cfg, err := e.config()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		return err
	}
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, fs.Arg(0), data); err != nil {
		return err
	}
	fmt.Fprintf(e.stderr, "uploaded %s (%s)\n", fs.Arg(0), humanize.IBytes(uint64(len(data))))
	return nil
}

// status is served on /status by the serve command.
type status struct {
	Datasets int                    `json:"datasets"`
	Folders  []lakescan.FolderTotal `json:"folders"`
	Cache    cache.Stats            `json:"cache"`
}

func runServe(ctx context.Context, e *env, args []string) error {
	fs := e.flags()
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := e.config()
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	eng, err := cfg.NewEngine(ctx, lakescan.WithMetricsCollector(collector))
	if err != nil {
		return err
	}
	defer eng.Close()

	if cfg.Cache.WarmOnStart {
		if _, err := eng.Warm(ctx); err != nil {
			logger.WarnContext(ctx, "initial warm pass failed", "error", err)
		}
	}
	eng.StartWarming(ctx)

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		st, err := engineStatus(r.Context(), eng)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = (&env{stdout: w, codecName: e.codecName, pretty: e.pretty}).write(st)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "serving", "addr", srv.Addr, "metrics", cfg.Metrics.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.InfoContext(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func engineStatus(ctx context.Context, eng *lakescan.Engine) (status, error) {
	n, err := eng.DatasetCount(ctx)
	if err != nil {
		return status{}, err
	}
	folders, err := eng.FolderTotals(ctx)
	if err != nil {
		return status{}, err
	}
	return status{Datasets: n, Folders: folders, Cache: eng.Cache().Stats()}, nil
}
