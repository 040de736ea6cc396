package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/relhe/billpilot/internal/client/lookup"
	"github.com/relhe/billpilot/internal/client/paymentapi"
	"github.com/relhe/billpilot/internal/importer"
	"github.com/relhe/billpilot/internal/infrastructure/cache"
	"github.com/relhe/billpilot/internal/infrastructure/config"
	"github.com/relhe/billpilot/internal/infrastructure/telemetry"
	"github.com/relhe/billpilot/internal/metrics"
	"github.com/relhe/billpilot/internal/service/payments"
	"github.com/relhe/billpilot/internal/store"
)

func main() {
	// Parse flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		action      = flag.String("action", "list", "Action to run: list, import, currencies, download")
		csvPath     = flag.String("csv", "", "CSV file to import (action=import)")
		paymentID   = flag.String("id", "", "Payment identifier (action=download)")
		page        = flag.Int("page", 1, "Page to display (action=list)")
		status      = flag.String("status", "", "Status filter (action=list)")
		search      = flag.String("search", "", "Search filter (action=list)")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	ctx := context.Background()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	var lookupCache cache.Cache
	if cfg.Redis.Enabled {
		zl, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("Failed to create cache logger: %v", err)
		}
		defer zl.Sync()

		lookupCache, err = cache.NewRedisCache(&cfg.Redis, zl)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer lookupCache.Close()
	}

	api := paymentapi.NewClient(paymentapi.Config{
		BaseURL:      cfg.PaymentAPI.BaseURL,
		Timeout:      cfg.PaymentAPI.Timeout,
		RateLimitRPS: cfg.PaymentAPI.RateLimitRPS,
	})

	loc := lookup.NewClient(lookup.Config{
		CountriesURL:  cfg.Lookup.CountriesURL,
		CurrenciesURL: cfg.Lookup.CurrenciesURL,
		Timeout:       cfg.Lookup.Timeout,
		RateLimitRPS:  cfg.Lookup.RateLimitRPS,
		CacheTTL:      cfg.Lookup.CacheTTL,
	}, lookupCache)

	svc := payments.NewService(api, loc, store.New(cfg.Display.PageSize), logger)

	switch *action {
	case "list":
		if err := runList(ctx, svc, *page, *status, *search); err != nil {
			log.Fatalf("List failed: %v", err)
		}
	case "import":
		if err := runImport(ctx, svc, logger, *csvPath); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	case "currencies":
		codes, err := svc.Currencies(ctx)
		if err != nil {
			log.Fatalf("Currency lookup failed: %v", err)
		}
		fmt.Println(strings.Join(codes, "\n"))
	case "download":
		if err := runDownload(ctx, svc, *paymentID); err != nil {
			log.Fatalf("Download failed: %v", err)
		}
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func runList(ctx context.Context, svc *payments.Service, page int, status, search string) error {
	if err := svc.Load(ctx); err != nil {
		return err
	}

	st := svc.Store()
	st.ApplyFilters(store.Criteria{Status: status, Search: search})
	st.ChangePage(page)

	view := st.Page()
	fmt.Printf("Page %d of %d (visible: %v)\n\n", view.Page, view.TotalPages, view.VisiblePages)
	for _, p := range view.Items {
		fmt.Printf("%-26s %-12s %-10s %8.2f %s  %s %s\n",
			p.ID, p.Status, p.Currency, p.TotalDue, p.DueDate, p.FirstName, p.LastName)
	}
	return nil
}

func runImport(ctx context.Context, svc *payments.Service, logger *slog.Logger, csvPath string) error {
	if csvPath == "" {
		return fmt.Errorf("-csv is required for action=import")
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := importer.New(svc, logger).Run(ctx, f)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d rows, skipped %d\n", summary.Imported, summary.Skipped)
	return nil
}

func runDownload(ctx context.Context, svc *payments.Service, id string) error {
	if id == "" {
		return fmt.Errorf("-id is required for action=download")
	}

	ev, err := svc.DownloadEvidence(ctx, id)
	if err != nil {
		return err
	}

	name := ev.Filename
	if name == "" {
		name = id + ".bin"
	}
	if err := os.WriteFile(name, ev.Content, 0o644); err != nil {
		return err
	}

	fmt.Printf("Saved %s (%s, %d bytes)\n", name, ev.ContentType, len(ev.Content))
	return nil
}
