package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// defaultQueryTimeout bounds a single Cypher statement, per spec.md §5's
// "each probe to a back-end carries a timeout" guidance. Call sites that
// need a different bound (e.g. a full sync's batched upserts) pass their
// own context instead of relying on this default.
const defaultQueryTimeout = 30 * time.Second

// Client wraps the Neo4j driver with the connection-pool tuning and
// fail-fast connectivity check the teacher's internal/graph/neo4j_client.go
// establishes, pointed at one database per repository instead of a single
// shared "neo4j" database.
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *logrus.Logger
	database string
}

// NewClient opens a driver against uri/user/password and verifies
// connectivity against the named database (spec.md §4.1: "cv_<repoId>").
func NewClient(ctx context.Context, uri, user, password, database string) (*Client, error) {
	if uri == "" || user == "" || password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", uri, user)
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 50
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = 3600 * time.Second
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(connectCtx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger := logrus.StandardLogger()
	logger.WithFields(logrus.Fields{
		"uri":      uri,
		"database": database,
	}).Info("neo4j client connected")

	return &Client{driver: driver, logger: logger, database: database}, nil
}

// Close releases the driver's connection pool.
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	return nil
}

// HealthCheck verifies the driver can still reach the cluster.
func (c *Client) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.driver.VerifyConnectivity(probeCtx); err != nil {
		return fmt.Errorf("neo4j health check failed: %w", err)
	}
	return nil
}

// Database returns the database name this client queries.
func (c *Client) Database() string {
	return c.database
}

// ExecuteQuery runs query with params against this client's database and
// returns each record flattened into a map, using the modern
// neo4j.ExecuteQuery entry point the teacher's client adopted. Unlike the
// teacher's version, the per-call timeout comes directly from ctx (the
// caller's responsibility) rather than an operation-keyed config table —
// the Graph Writer's operation set is small and fixed, so a lookup table
// indirection buys nothing here.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultQueryTimeout)
		defer cancel()
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database))
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	records := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		records = append(records, record.AsMap())
	}
	return records, nil
}
