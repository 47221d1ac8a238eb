package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/reflexpool/internal/storage"
	"github.com/mcoot/reflexpool/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestSQLiteStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		cfg := DefaultConfig()
		cfg.Path = ":memory:"
		store, err := Open(context.Background(), cfg)
		s.Require().NoError(err)
		return store
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TestOpenIsIdempotentOnSchema() {
	store := s.Store.(*Storage)
	s.Require().NoError(store.migrate(s.Ctx))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "mysql"
	_, err := Open(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
