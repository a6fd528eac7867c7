// Package testutil builds throwaway stores for package tests: a migrated
// sqlite database and an in-memory redis.
package testutil

import (
	"Medicare/cache"
	"Medicare/database"
	"Medicare/models"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated sqlite database with foreign keys enforced.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "medicare.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

// Redis bundles an in-memory server with the cache and locker built on it.
type Redis struct {
	Server *miniredis.Miniredis
	Client *redis.Client
	Cache  *cache.Cache
	Locker *database.Locker
}

func NewTestRedis(t *testing.T) *Redis {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := cache.NewCache(client, time.Hour)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	locker := database.NewLocker(client, database.LockConfig{Retries: 2, RetryDelay: 10 * time.Millisecond, TTL: 5 * time.Second})
	return &Redis{Server: server, Client: client, Cache: c, Locker: locker}
}

// SeedHospital inserts a hospital with a unique email.
func SeedHospital(t *testing.T, db *gorm.DB, name string) *models.Hospital {
	t.Helper()

	h := &models.Hospital{Name: name, Email: name + "@hospital.test", Password: "x"}
	if err := db.WithContext(context.Background()).Create(h).Error; err != nil {
		t.Fatalf("seed hospital: %v", err)
	}
	return h
}
