package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pulsedash/dashcal/internal/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calendar as JSON over HTTP",
	Long: `Serve the calendar window, day indicators and agenda as JSON for wall
displays and web dashboards.

  GET /health
  GET /api/calendar?days=0&month=2025-06&selected=2025-06-18&limit=6

Fetched events are cached for cache_ttl and dropped on the 'refresh'
cron schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Address to listen on (default 127.0.0.1:8080)")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	loc, err := displayLocation()
	if err != nil {
		return err
	}
	fetch, err := buildFetchOptions()
	if err != nil {
		return err
	}
	if viper.GetInt("days") < 0 {
		return fmt.Errorf("invalid days %d: use 0 for a month grid or a positive count", viper.GetInt("days"))
	}

	srv := web.NewServer(adapter, web.Config{
		RollingDays: viper.GetInt("days"),
		HorizonDays: viper.GetInt("horizon_days"),
		Limit:       viper.GetInt("limit"),
		Location:    loc,
		Fetch:       fetch,
		CacheTTL:    viper.GetDuration("cache_ttl"),
	})

	refresher, err := newRefresher(srv.Invalidate)
	if err != nil {
		return err
	}
	refresher.Start()
	defer refresher.Stop()

	httpSrv := &http.Server{
		Addr:              viper.GetString("listen"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpSrv.Addr, "provider", adapter.Name())
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s\n", adapter.Name(), httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
