//go:build integration

package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// Run with: REG_TEST_MONGO_URL=mongodb://localhost:27017 go test -tags integration ./database
func TestMongoStoreSuite(t *testing.T) {
	uri := os.Getenv("REG_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("REG_TEST_MONGO_URL not set")
	}

	suite.Run(t, &StoreSuite{
		open: func() Store {
			store, err := OpenMongo(context.Background(), uri, "regtest_"+uuid.NewString()[:8], 5*time.Second)
			if err != nil {
				t.Fatalf("open mongo: %v", err)
			}
			return store
		},
		drop: func(s Store) {
			if err := s.(*MongoStore).db.Drop(context.Background()); err != nil {
				t.Logf("drop test database: %v", err)
			}
		},
	})
}
