// Package serve handles the serve command, which exposes the analytics tools
// over HTTP.
package serve

import (
	"os"
	"os/signal"
	"syscall"

	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/api"
	"fjacquet/fin-insights/internal/goal"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var address string

// Version is reported by the health endpoint. Set by main.
var Version = "dev"

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics tools over HTTP",
	Long: `Serve starts a JSON API exposing categorization, budgets, anomalies, the
forecast, goal planning, nudges, questions and debt planning under /tools.
It stops gracefully on SIGINT or SIGTERM.`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVar(&address, "addr", "", "Listen address (default from api.address)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	cfg := root.Config()
	c, err := root.Container()
	if err != nil {
		return err
	}
	addr := address
	if addr == "" {
		addr = cfg.API.Address
	}

	gin.SetMode(gin.ReleaseMode)
	srv := api.NewServer(api.Deps{
		Engine:        c.GetEngine(),
		Runner:        c.GetRunner(),
		Insights:      c.GetInsights(),
		Debts:         c.GetDebts(),
		Goal:          goal.Options{BufferRatio: cfg.Goal.BufferRatio},
		MinConfidence: cfg.Categorization.MinConfidence,
	}, api.Options{
		AllowedOrigins: cfg.API.AllowedOrigins,
		Logger:         root.Log,
		Version:        Version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
