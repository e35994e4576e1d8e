//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/example/shopcore/pkg/config"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

var (
	testOrders  *OrderRepository
	testReviews *ReviewRepository
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	code, err := run(ctx, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(ctx context.Context, m *testing.M) (int, error) {
	mysqlC, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("shop"),
		tcmysql.WithUsername("shop"),
		tcmysql.WithPassword("secret"),
	)
	if err != nil {
		return 0, fmt.Errorf("start mysql container: %w", err)
	}
	defer terminate(mysqlC)

	mongoC, err := tcmongo.Run(ctx, "mongo:7", tcmongo.WithReplicaSet("rs0"))
	if err != nil {
		return 0, fmt.Errorf("start mongo container: %w", err)
	}
	defer terminate(mongoC)

	host, err := mysqlC.Host(ctx)
	if err != nil {
		return 0, fmt.Errorf("mysql host: %w", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		return 0, fmt.Errorf("mysql port: %w", err)
	}

	testOrders, err = NewOrderRepository(&config.MySQLConfig{
		Host:         host,
		Port:         port.Int(),
		Username:     "shop",
		Password:     "secret",
		Database:     "shop",
		MaxOpenConns: 10,
	})
	if err != nil {
		return 0, err
	}
	defer testOrders.Close()

	if err := testOrders.Migrate(ctx); err != nil {
		return 0, err
	}

	uri, err := mongoC.ConnectionString(ctx)
	if err != nil {
		return 0, fmt.Errorf("mongo uri: %w", err)
	}

	testReviews, err = NewReviewRepository(&config.MongoDBConfig{
		URI:                    directURI(uri),
		Database:               "shop_test",
		Collection:             "reviews",
		ServerSelectionTimeout: 10 * time.Second,
	})
	if err != nil {
		return 0, err
	}
	defer testReviews.Close(context.Background())

	if err := testReviews.EnsureIndexes(ctx); err != nil {
		return 0, err
	}

	return m.Run(), nil
}

// directURI pins the client to the single container member; the replica set
// advertises an address that is not reachable from the host.
func directURI(uri string) string {
	if strings.Contains(uri, "?") {
		return uri + "&directConnection=true"
	}
	return strings.TrimSuffix(uri, "/") + "/?directConnection=true"
}

func terminate(c testcontainers.Container) {
	if err := c.Terminate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "terminate container: %v\n", err)
	}
}
