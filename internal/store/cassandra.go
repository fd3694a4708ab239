package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"github.com/tbourn/go-messenger-store/internal/config"
)

// CassandraConnector creates gocql sessions bound to the configured keyspace.
type CassandraConnector struct {
	cfg config.CassandraConfig
}

// NewCassandraConnector returns a connector for cfg.
func NewCassandraConnector(cfg config.CassandraConfig) *CassandraConnector {
	return &CassandraConnector{cfg: cfg}
}

// WithoutKeyspace returns a connector whose sessions are not bound to a
// keyspace; schema bootstrap uses it to create the keyspace itself.
func (c *CassandraConnector) WithoutKeyspace() *CassandraConnector {
	cfg := c.cfg
	cfg.Keyspace = ""
	return &CassandraConnector{cfg: cfg}
}

// Dialect implements Connector.
func (c *CassandraConnector) Dialect() Dialect { return CQL }

// Target implements Connector.
func (c *CassandraConnector) Target() string {
	return fmt.Sprintf("%s:%d/%s", strings.Join(c.cfg.Hosts, ","), c.cfg.Port, c.cfg.Keyspace)
}

// Connect implements Connector.
func (c *CassandraConnector) Connect(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cluster, err := c.clusterConfig()
	if err != nil {
		return nil, err
	}
	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &cassandraSession{sess: sess}, nil
}

func (c *CassandraConnector) clusterConfig() (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(c.cfg.Hosts...)
	cluster.Port = c.cfg.Port
	cluster.Keyspace = c.cfg.Keyspace
	if c.cfg.Timeout > 0 {
		cluster.Timeout = c.cfg.Timeout
		cluster.ConnectTimeout = c.cfg.Timeout
	}
	if c.cfg.Consistency != "" {
		cons, err := gocql.ParseConsistencyWrapper(c.cfg.Consistency)
		if err != nil {
			return nil, err
		}
		cluster.Consistency = cons
	}
	// Conditional writes (IF NOT EXISTS / IF col = ?) run Paxos in the local DC.
	cluster.SerialConsistency = gocql.LocalSerial
	if c.cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		}
	}
	return cluster, nil
}

// cassandraSession adapts *gocql.Session to Session.
type cassandraSession struct {
	sess *gocql.Session
}

func (s *cassandraSession) Query(ctx context.Context, stmt string, args []any) ([]Row, error) {
	iter := s.sess.Query(stmt, args...).WithContext(ctx).Iter()
	var rows []Row
	for {
		m := make(map[string]any)
		if !iter.MapScan(m) {
			break
		}
		rows = append(rows, Row(m))
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *cassandraSession) Exec(ctx context.Context, stmt string, args []any) error {
	return s.sess.Query(stmt, args...).WithContext(ctx).Exec()
}

func (s *cassandraSession) Apply(ctx context.Context, stmt string, args []any) (bool, error) {
	return s.sess.Query(stmt, args...).WithContext(ctx).MapScanCAS(map[string]any{})
}

func (s *cassandraSession) Close() error {
	s.sess.Close()
	return nil
}
