package commands

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-messenger-store/internal/http"
	"github.com/tbourn/go-messenger-store/internal/schema"
	"github.com/tbourn/go-messenger-store/internal/sysutil"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the store and run the ops server (health, readiness, metrics)",
	Long: `serve starts the store connect loop in the background and exposes
/health, /ready and /metrics until interrupted. /ready turns 200 once the
session is up and every required table exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		gin.SetMode(cfg.GinMode)
		router := httpapi.NewRouter(cfg, httpapi.Deps{
			Store: a.gw,
			Tables: func(ctx context.Context) ([]string, error) {
				return schema.Check(ctx, a.gw, cfg.Cassandra.Keyspace)
			},
		})
		return httpapi.ListenAndServe(cmd.Context(), sysutil.FirstNonEmpty(serveAddr, cfg.OpsAddr), router, log.Logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: OPS_ADDR)")
	AddCommand(serveCmd)
}
