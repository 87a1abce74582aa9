package common

import (
	"context"
	"net/http"
)

// this is an exact copy of otter's Loader
type CacheLoader[K comparable, V any] interface {
	Load(ctx context.Context, key K) (V, error)
	Reload(ctx context.Context, key K, oldValue V) (V, error)
}

type Cache[TKey comparable, TValue any] interface {
	Get(ctx context.Context, key TKey) (TValue, error)
	GetEx(ctx context.Context, key TKey, loader CacheLoader[TKey, TValue]) (TValue, error)
	Set(ctx context.Context, key TKey, t TValue) error
	Delete(ctx context.Context, key TKey) error
	HitRatio() float64
}

type ConfigItem interface {
	Key() ConfigKey
	Value() string
}

type ConfigStore interface {
	Get(key ConfigKey) ConfigItem
	Update(ctx context.Context)
}

type PlatformMetrics interface {
	ObserveHealth(sqliteUp bool)
	ObserveCacheHitRatio(ratio float64)
}

type APIMetrics interface {
	Handler(h http.Handler) http.Handler
}
