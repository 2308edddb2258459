package main

import (
	"context"
	"fmt"

	"follow-exchange/internal/adapter/bolt"
	"follow-exchange/internal/adapter/cache"
	"follow-exchange/internal/adapter/memory"
	"follow-exchange/internal/adapter/postgres"
	"follow-exchange/internal/config"
	"follow-exchange/internal/config/configs"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/db"
)

// openedStore is the selected ledger backend and its lifecycle hooks.
type openedStore struct {
	store port.Store
	ping  func(ctx context.Context) error
	close func()
}

func openStore(ctx context.Context, cfg config.Config) (*openedStore, error) {
	switch cfg.Store.Driver {
	case configs.StoreDriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			return nil, fmt.Errorf("database connection error: %w", err)
		}
		return &openedStore{
			store: postgres.NewStore(pool),
			ping:  pool.Ping,
			close: pool.Close,
		}, nil
	case configs.StoreDriverBolt:
		s, err := bolt.Open(cfg.Store.BoltPath)
		if err != nil {
			return nil, err
		}
		return &openedStore{
			store: s,
			ping:  func(context.Context) error { return nil },
			close: func() { _ = s.Close() },
		}, nil
	default:
		return &openedStore{
			store: memory.New(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil
	}
}

type openedCache struct {
	cache port.Cache
	ping  func(ctx context.Context) error
	close func()
}

func openCache(ctx context.Context, cfg configs.Redis) (*openedCache, error) {
	if !cfg.Enabled {
		return &openedCache{
			cache: cache.NewInMemoryCache(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.Addr, cfg.Password, cfg.DB, cfg.KeyPrefix)
	if err != nil {
		return nil, err
	}
	return &openedCache{cache: rc, ping: rc.Ping, close: func() { _ = rc.Close() }}, nil
}

// healthCheck reports the first failing dependency.
func healthCheck(st *openedStore, kv *openedCache) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := st.ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		if err := kv.ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		return nil
	}
}
