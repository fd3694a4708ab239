package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-messenger-store/internal/config"
	"github.com/tbourn/go-messenger-store/internal/schema"
	"github.com/tbourn/go-messenger-store/internal/store"
	"github.com/tbourn/go-messenger-store/internal/sysutil"
)

var (
	schemaKeyspace string
	schemaRF       int
)

type schemaReport struct {
	Driver   string   `json:"driver"`
	Keyspace string   `json:"keyspace,omitempty"`
	Tables   []string `json:"tables"`
	Missing  []string `json:"missing"`
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the keyspace and tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lg := log.Logger
		opts := store.Options{RetryDelay: cfg.Reconnect.Delay, MaxAttempts: cfg.Reconnect.MaxAttempts, Logger: &lg}

		report := schemaReport{Driver: cfg.Driver, Tables: schema.RequiredTables}
		var gw *store.Gateway
		switch cfg.Driver {
		case config.DriverCassandra:
			report.Keyspace = sysutil.FirstNonEmpty(schemaKeyspace, cfg.Cassandra.Keyspace)
			rf := schemaRF
			if rf < 1 {
				rf = cfg.Cassandra.ReplicationFactor
			}
			gw = store.New(store.NewCassandraConnector(cfg.Cassandra).WithoutKeyspace(), opts)
			defer gw.Close()
			if err := schema.Bootstrap(ctx, gw, report.Keyspace, rf); err != nil {
				return err
			}
		default:
			db, err := store.OpenSQLite(cfg.SQLitePath)
			if err != nil {
				return err
			}
			if err := schema.MigrateSQLite(db); err != nil {
				return err
			}
			sess := store.NewSQLiteSession(db)
			gw = store.New(store.ConnectFunc{
				D:    store.SQLite,
				Name: "sqlite:" + cfg.SQLitePath,
				Fn:   func(context.Context) (store.Session, error) { return sess, nil },
			}, opts)
			defer gw.Close()
		}

		missing, err := schema.Check(ctx, gw, report.Keyspace)
		if err != nil {
			return err
		}
		report.Missing = append([]string{}, missing...)
		lg.Info().Str("driver", cfg.Driver).Int("missing", len(missing)).Msg("schema bootstrap done")
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaKeyspace, "keyspace", "", "keyspace to create (default: CASSANDRA_KEYSPACE)")
	schemaCmd.Flags().IntVar(&schemaRF, "replication-factor", 0, "SimpleStrategy replication factor (default: CASSANDRA_REPLICATION_FACTOR)")
	AddCommand(schemaCmd)
}
