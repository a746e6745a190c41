package postgres

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"

	"github.com/kava-labs/composer-proxy-service/clients/database"
	"github.com/kava-labs/composer-proxy-service/logging"
)

var (
	ErrNoDatabase         = errors.New("postgres client has no database connection")
	ErrMissingEndpoint    = errors.New("database endpoint url is required")
	defaultConnectTimeout = 30 * time.Second
)

// DatabaseConfig contains values for creating a
// new connection to a postgres database
type DatabaseConfig struct {
	DatabaseName                     string
	DatabaseEndpointURL              string
	DatabaseUsername                 string
	DatabasePassword                 string
	ReadTimeoutSeconds               int64
	WriteTimeoutSeconds              int64
	DatabaseMaxIdleConnections       int64
	DatabaseConnectionMaxIdleSeconds int64
	DatabaseMaxOpenConnections       int64
	SSLEnabled                       bool
	QueryLoggingEnabled              bool
	// ConnectTimeout bounds the retries of the first connection,
	// zero means 30 seconds
	ConnectTimeout time.Duration
	Logger         *logging.ServiceLogger
}

// Client wraps a connection to a postgres database
type Client struct {
	db     *bun.DB
	logger *logging.ServiceLogger
}

var _ database.MetricsDatabase = (*Client)(nil)

// NewClient opens a connection to the configured database, retrying
// with exponential backoff until it answers or ConnectTimeout elapses
func NewClient(config DatabaseConfig) (*Client, error) {
	if config.DatabaseEndpointURL == "" {
		return nil, ErrMissingEndpoint
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}

	options := []pgdriver.Option{
		pgdriver.WithAddr(config.DatabaseEndpointURL),
		pgdriver.WithUser(config.DatabaseUsername),
		pgdriver.WithPassword(config.DatabasePassword),
		pgdriver.WithDatabase(config.DatabaseName),
		pgdriver.WithReadTimeout(time.Second * time.Duration(config.ReadTimeoutSeconds)),
		pgdriver.WithWriteTimeout(time.Second * time.Duration(config.WriteTimeoutSeconds)),
	}
	if config.SSLEnabled {
		options = append(options, pgdriver.WithTLSConfig(&tls.Config{InsecureSkipVerify: false}))
	} else {
		options = append(options, pgdriver.WithInsecure(true))
	}
	connector := pgdriver.NewConnector(options...)

	config.Logger.Debug().
		Str("addr", config.DatabaseEndpointURL).
		Str("database", config.DatabaseName).
		Msg("creating database client")

	sqldb := sql.OpenDB(connector)

	// https://go.dev/doc/database/manage-connections#connection_pool_properties
	sqldb.SetMaxIdleConns(int(config.DatabaseMaxIdleConnections))
	sqldb.SetConnMaxIdleTime(time.Second * time.Duration(config.DatabaseConnectionMaxIdleSeconds))
	sqldb.SetMaxOpenConns(int(config.DatabaseMaxOpenConnections))

	db := bun.NewDB(sqldb, pgdialect.New())
	if config.QueryLoggingEnabled {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	connectTimeout := config.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = connectTimeout

	err := backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}, retry, func(err error, next time.Duration) {
		config.Logger.Warn().
			Err(err).
			Dur("retry_in", next).
			Msg("database not reachable yet")
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database %s: %w", config.DatabaseEndpointURL, err)
	}

	return &Client{db: db, logger: config.Logger}, nil
}

// HealthCheck returns an error if the database can not
// be connected to and queried, nil otherwise
func (c *Client) HealthCheck() error {
	if c.db == nil {
		return ErrNoDatabase
	}
	_, err := c.db.Exec(`SELECT 1;`)
	return err
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Migrate runs every migration not yet applied to the database, rolling
// the group back when one of them fails so the run can be retried.
// returns all migrations with their status
func (c *Client) Migrate(ctx context.Context, migrations *migrate.Migrations) (migrate.MigrationSlice, error) {
	if c.db == nil {
		return nil, ErrNoDatabase
	}

	migrator := migrate.NewMigrator(c.db, migrations)

	// creates the tables tracking applied migrations
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		rolledBack, rollbackErr := migrator.Rollback(ctx)
		if rollbackErr != nil {
			return nil, errors.Join(err, fmt.Errorf("error rolling back: %w", rollbackErr))
		}
		if rolledBack.IsZero() {
			return nil, fmt.Errorf("no group to roll back after migration error: %w", err)
		}
		return nil, fmt.Errorf("rolled back group %d after migration error: %w", rolledBack.ID, err)
	}

	if group.IsZero() {
		c.logger.Debug().Msg("there are no new migrations to run")
	} else {
		c.logger.Info().
			Int64("group", group.ID).
			Int("migrations", len(group.Migrations)).
			Msg("applied migrations")
	}

	return migrator.MigrationsWithStatus(ctx)
}
