package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetbite/pkg/cache"
	"budgetbite/pkg/config"
	"budgetbite/pkg/logger"
	"budgetbite/pkg/searchclient"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	apiBase    string
	logLevel   string

	cfg    *config.Config
	appLog = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "budgetbite",
	Short: "BudgetBite - compare grocery prices across nearby stores",
	Long: `BudgetBite searches nearby grocery stores for a product through the
BudgetBite search service and lists the offers it finds.

It runs as a web storefront (serve), a terminal storefront (tui) or as a
one-shot search (search).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if apiBase != "" {
			loaded.APIBase = apiBase
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		// The terminal storefront owns the screen and logs to a file instead.
		if cmd.Name() != tuiCmd.Name() {
			appLog = logger.Setup(cfg.LogLevel, cfg.LogPretty)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web storefront and its JSON API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "Search service origin (or set API_BASE_URL env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, searchCmd, tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient(cfg *config.Config, log zerolog.Logger) *searchclient.Client {
	c := searchclient.New(cfg.SearchURL())
	c.Timeout = cfg.RequestTimeout
	c.Log = log
	return c
}

func runServe(cmd *cobra.Command, args []string) error {
	log := appLog

	store, err := cache.New(cfg.CacheDBPath, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer store.Close()
	log.Info().Str("path", cfg.CacheDBPath).Dur("ttl", cfg.CacheTTL).Msg("Result set cache initialized")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go purgeLoop(ctx, store, cfg.CacheTTL, log)

	srv := newServer(cfg, newClient(cfg, log), store, log)

	if ip := GetOutboundIP(); ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), cfg.Port)
	} else {
		fmt.Println("Could not determine local IP address.")
	}
	fmt.Printf("Access URL: http://localhost:%s\n", cfg.Port)
	fmt.Printf("API Docs: http://localhost:%s/docs\n", cfg.Port)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Flush()
	return server.Shutdown(shutdownCtx)
}

// purgeLoop removes expired result sets once per ttl until ctx is done.
func purgeLoop(ctx context.Context, store *cache.Cache, ttl time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge()
			if err != nil {
				log.Warn().Err(err).Msg("Error purging expired result sets")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("Purged expired result sets")
			}
		}
	}
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
