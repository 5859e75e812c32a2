package redishonour

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/cory-johannsen/arena/internal/game/rating"
)

type StoreTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	store  *Store
}

func (s *StoreTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	store, err := NewStore(&Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.store = store
}

func (s *StoreTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestNewStoreRequiresClient() {
	_, err := NewStore(nil)
	s.Error(err)

	_, err = NewStore(&Config{})
	s.Error(err)
}

func (s *StoreTestSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "nobody")
	s.ErrorIs(err, rating.ErrNotFound)
}

func (s *StoreTestSuite) TestSetManyThenGet() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetMany(ctx, map[string]int{
		"alice": 1205,
		"bob":   990,
	}))

	got, err := s.store.Get(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1205, got)

	got, err = s.store.Get(ctx, "bob")
	s.Require().NoError(err)
	s.Equal(990, got)
}

func (s *StoreTestSuite) TestSetManyOverwrites() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetMany(ctx, map[string]int{"alice": 1000}))
	s.Require().NoError(s.store.SetMany(ctx, map[string]int{"alice": 1010}))

	got, err := s.store.Get(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1010, got)
}

func (s *StoreTestSuite) TestSetManyEmptyIsNoop() {
	s.NoError(s.store.SetMany(context.Background(), nil))
}

func (s *StoreTestSuite) TestAll() {
	ctx := context.Background()
	want := map[string]int{"alice": 1200, "bob": 1000, "carol": 0}
	s.Require().NoError(s.store.SetMany(ctx, want))

	all, err := s.store.All(ctx)
	s.Require().NoError(err)
	s.Equal(want, all)
}

func (s *StoreTestSuite) TestGetCorruptValue() {
	ctx := context.Background()
	s.mr.HSet(ratingsKey, "alice", "not-a-number")

	_, err := s.store.Get(ctx, "alice")
	s.Error(err)
	s.NotErrorIs(err, rating.ErrNotFound)
}
