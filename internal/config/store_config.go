package config

import "strconv"

const (
	StoreBackendEnvVar   = "STORE_BACKEND"
	RedisAddrEnvVar      = "REDIS_ADDR"
	RedisPasswordEnvVar  = "REDIS_PASSWORD"
	RedisDBEnvVar        = "REDIS_DB"
	RedisKeyPrefixEnvVar = "REDIS_KEY_PREFIX"
	SQLitePathEnvVar     = "SQLITE_PATH"
)

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendSQLite = "sqlite"
)

type Store struct {
	src source
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.src.get(StoreBackendEnvVar, StoreBackendMemory)
}

func (s Store) GetRedisAddr() string {
	return s.src.get(RedisAddrEnvVar, "localhost:6379")
}

func (s Store) GetRedisPassword() string {
	return s.src.get(RedisPasswordEnvVar, "")
}

func (s Store) GetRedisDB() int {
	db, err := strconv.Atoi(s.src.get(RedisDBEnvVar, "0"))
	if err != nil {
		return 0
	}
	return db
}

func (s Store) GetRedisKeyPrefix() string {
	return s.src.get(RedisKeyPrefixEnvVar, "mockoauth:")
}

func (s Store) GetSQLitePath() string {
	return s.src.get(SQLitePathEnvVar, "./data/mockoauth.db")
}
