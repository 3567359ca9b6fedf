package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eddielimmm/my-agile-plus/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Serve the JSON API over HTTP until interrupted.

The listen address comes from web.addr in the config file, AGILEPLUS_WEB_ADDR,
or --addr.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		serve(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
}

func serve(addr string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cfg, ok := openApp(ctx, nil)
	if !ok {
		return
	}
	defer a.Close()
	if addr == "" {
		addr = cfg.Web.Addr
	}

	log := newLogger(deps.Stderr, cfg.LogLevel()).With("component", "web")
	if err := web.NewServer(a, log).Run(ctx, addr); err != nil {
		fail("Failed to serve the API", err)
	}
}
