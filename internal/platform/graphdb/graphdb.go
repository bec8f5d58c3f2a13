// Package graphdb provides a Neo4j driver wrapper for the topic graph.
package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph wraps a Neo4j driver bound to one database.
type Graph struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// Options holds connection settings.
type Options struct {
	URI         string
	Username    string
	Password    string
	Database    string
	MaxPoolSize int
	Timeout     time.Duration
}

// New creates a driver and verifies connectivity.
func New(ctx context.Context, opts Options) (*Graph, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("graph URI is empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(
		opts.URI,
		neo4j.BasicAuth(opts.Username, opts.Password, ""),
		func(cfg *neo4j.Config) {
			if opts.MaxPoolSize > 0 {
				cfg.MaxConnectionPoolSize = opts.MaxPoolSize
			}
			cfg.SocketConnectTimeout = opts.Timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating graph driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying graph connectivity: %w", err)
	}

	return &Graph{Driver: driver, Database: opts.Database}, nil
}

// Read runs work in a read transaction.
func (g *Graph) Read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := g.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: g.Database,
	})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.Driver.Close(ctx)
}

// HealthCheck verifies the graph connection is alive.
func (g *Graph) HealthCheck(ctx context.Context) error {
	return g.Driver.VerifyConnectivity(ctx)
}
