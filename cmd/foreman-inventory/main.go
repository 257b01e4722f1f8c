package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rflorenc/foreman-inventory/internal/api"
	"github.com/rflorenc/foreman-inventory/internal/cache"
	"github.com/rflorenc/foreman-inventory/internal/config"
	"github.com/rflorenc/foreman-inventory/internal/foreman"
	"github.com/rflorenc/foreman-inventory/internal/inventory"
	"github.com/rflorenc/foreman-inventory/internal/logging"
	"github.com/rflorenc/foreman-inventory/internal/models"
	"github.com/rflorenc/foreman-inventory/internal/refresh"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("foreman-inventory %s (commit: %s, built: %s)\n", version, commit, date)
			os.Exit(0)
		}
	}

	// Logs go to stderr so stdout stays valid JSON for ansible.
	logging.Setup("info")
	cfg, err := config.Parse()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(cfg.LogLevel)

	client, err := foreman.NewClient(foreman.Config{
		URL:      cfg.Foreman.URL,
		Username: cfg.Foreman.Username,
		Password: cfg.Foreman.Password,
		Insecure: cfg.Foreman.Insecure,
		CACert:   cfg.Foreman.CACert,
		Timeout:  time.Duration(cfg.Foreman.Timeout) * time.Second,
		PerPage:  cfg.Foreman.PerPage,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("building foreman client")
	}

	builder := &inventory.Builder{Patterns: cfg.Patterns}
	store := cache.New(cfg.Cache.Path, time.Duration(cfg.Cache.MaxAge)*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Serve {
		runServe(ctx, cfg, client, builder, store)
		return
	}

	inv, cached := loadInventory(ctx, client, builder, store, cfg.RefreshCache)

	if cfg.Host != "" {
		// A cached inventory may simply predate the host; refetch once
		// before answering {}.
		if _, ok := inv.Hostvars[cfg.Host]; !ok && cached {
			inv, _ = loadInventory(ctx, client, builder, store, true)
		}
		printHostVars(inv, cfg.Host)
		return
	}
	printJSON(inv)
}

// loadInventory returns the cached inventory when fresh enough, otherwise
// refetches and rewrites the cache. The second return reports whether the
// result came from the cache.
func loadInventory(ctx context.Context, client *foreman.Client, builder *inventory.Builder, store *cache.Store, force bool) (*inventory.Inventory, bool) {
	if !force {
		if inv := store.Load(); inv != nil {
			log.Debug().Str("path", store.Path()).Msg("using cached inventory")
			return inv, true
		}
	}
	inv, err := refresh.RunAndSave(ctx, client, builder, store, func(line string) {
		log.Info().Msg(line)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("refreshing inventory")
	}
	return inv, false
}

func runServe(ctx context.Context, cfg *config.Config, client *foreman.Client, builder *inventory.Builder, store *cache.Store) {
	server := &api.Server{
		Inventory: api.NewInventoryStore(),
		Jobs:      models.NewJobStore(),
		Refresh: func(logf func(string)) (*inventory.Inventory, error) {
			return refresh.RunAndSave(ctx, client, builder, store, logf)
		},
	}

	// Serve something immediately when a usable cache exists; the startup
	// refresh replaces it as soon as it lands.
	if inv := store.Load(); inv != nil {
		server.Inventory.Set(inv, "")
		log.Info().Str("path", store.Path()).Msg("preloaded inventory from cache")
	}
	server.StartRefresh()

	if maxAge := time.Duration(cfg.Cache.MaxAge) * time.Second; maxAge > 0 {
		go func() {
			ticker := time.NewTicker(maxAge)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					server.StartRefresh()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	httpServer := &http.Server{Addr: cfg.Listen, Handler: api.NewRouter(server)}
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Listen).Str("version", version).Msg("foreman-inventory service starting")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server")
	}
}

func printHostVars(inv *inventory.Inventory, name string) {
	vars, ok := inv.Hostvars[name]
	if !ok {
		fmt.Println("{}")
		return
	}
	printJSON(vars)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encoding inventory")
	}
	fmt.Println(string(data))
}
