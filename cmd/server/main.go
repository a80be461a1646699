// Command vapi runs the parking availability API.
//
//	vapi serve   [--config vapi.yaml]
//	vapi migrate [--config vapi.yaml]
//	vapi nearby  --lat -34.6037 --lng -58.3816 [--radius 500]
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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vapi/internal/api"
	"vapi/internal/api/handlers"
	"vapi/internal/config"
	"vapi/internal/realtime"
	"vapi/internal/repository/memory"
	"vapi/internal/repository/sqlstore"
	"vapi/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Subcommands share the --config flag
// through the loadConfig closure rather than a package-level variable, so
// tests can build independent trees.
//
// Go Learning Note — "github.com/spf13/cobra":
// Cobra models a CLI as a tree of *cobra.Command values. Persistent flags
// declared on a parent are inherited by every child; RunE returns an error
// instead of exiting, which lets Execute print it and keeps commands
// testable.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "vapi",
		Short:        "Crowd-sourced street parking availability API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newMigrateCmd(loadConfig),
		newNearbyCmd(loadConfig),
	)
	return root
}

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// Go Learning Note — signal.NotifyContext:
			// The returned context is cancelled on SIGINT/SIGTERM, which
			// turns an OS signal into the same ctx.Done() every other
			// goroutine already watches.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loader := &awsLoader{region: cfg.AWS.Region}
	st, err := openStores(ctx, cfg, loader)
	if err != nil {
		return err
	}
	defer st.Close()

	auth, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(st.subscriptions, logger.Named("realtime"), realtime.HubOptions{
		WriteTimeout: cfg.Realtime.WriteTimeout,
		PingInterval: cfg.Realtime.PingInterval,
	})
	defer hub.Close()

	notifier, err := newNotifier(ctx, cfg, hub, loader, logger.Named("notify"))
	if err != nil {
		return err
	}

	// Per-user submit locks are process-local; see memory.LockManager.
	locks := memory.NewLockManager(time.Minute)
	defer locks.Stop()

	reportService := services.NewReportService(st.reports, notifier, logger.Named("reports")).WithLocker(locks)
	aggregationService := services.NewAggregationService(st.reports, cfg)
	confirmationService := services.NewConfirmationService(st.confirmations)
	parkingService := services.NewParkingService(st.sessions)

	router := api.NewRouter(
		handlers.NewReportHandler(reportService, aggregationService, confirmationService),
		handlers.NewParkingHandler(parkingService),
		hub,
		auth,
		logger.Named("http"),
	)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	router.Setup(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if st.purger != nil && cfg.Store.SweepInterval > 0 {
		g.Go(func() error {
			services.RunPurger(gctx, st.purger, cfg.Store.SweepInterval, logger.Named("purger"))
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("auth", cfg.Auth.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Graceful shutdown: stop accepting requests, let in-flight ones finish,
	// then drop the WebSocket clients (Shutdown does not track hijacked
	// connections).
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		hub.Close()
		return err
	})

	return g.Wait()
}

func newMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQL schema for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory store: nothing to migrate")
				return nil
			}

			db, err := sqlstore.Open(cmd.Context(), sqlstore.Dialect(cfg.Store.Driver), cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.Store.Driver)
			return nil
		},
	}
}

// newNearbyCmd runs the aggregation against the configured store and prints
// the clusters as JSON. Handy for checking what a deployed store holds.
func newNearbyCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var lat, lng, radius float64

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Print the parking clusters around a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStores(ctx, cfg, &awsLoader{region: cfg.AWS.Region})
			if err != nil {
				return err
			}
			defer st.Close()

			aggregation := services.NewAggregationService(st.reports, cfg)
			if !cmd.Flags().Changed("radius") {
				radius = aggregation.DefaultRadius()
			}

			clusters, err := aggregation.FindNearby(ctx, lat, lng, radius)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(handlers.NearbyResponse{Clusters: clusters, Total: len(clusters)})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the search center")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude of the search center")
	cmd.Flags().Float64Var(&radius, "radius", 0, "search radius in meters (default from config)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
