package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-mock-oauth/internal/config"
	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/jrsteele09/go-mock-oauth/store/memory"
	"github.com/jrsteele09/go-mock-oauth/store/redisstore"
	"github.com/jrsteele09/go-mock-oauth/store/sqlitestore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OpenStore opens the code and token store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch backend := cfg.GetStoreBackend(); backend {
	case config.StoreBackendMemory:
		return memory.New(), nil

	case config.StoreBackendRedis:
		s, err := redisstore.New(ctx, redisstore.Options{
			Addr:      cfg.GetRedisAddr(),
			Password:  cfg.GetRedisPassword(),
			DB:        cfg.GetRedisDB(),
			KeyPrefix: cfg.GetRedisKeyPrefix(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "[OpenStore] redis")
		}
		return s, nil

	case config.StoreBackendSQLite:
		path := cfg.GetSQLitePath()
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "[OpenStore] failed to create %s", dir)
			}
		}
		s, err := sqlitestore.Open(ctx, path)
		if err != nil {
			return nil, errors.Wrap(err, "[OpenStore] sqlite")
		}
		pruned, err := s.DeleteExpiredCodes(ctx, time.Now())
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "[OpenStore] failed to prune expired codes")
		}
		log.Debug().Int64("pruned", pruned).Str("path", path).Msg("sqlite store opened")
		return s, nil

	default:
		return nil, errors.Wrapf(apperrors.ErrUnsupported, "[OpenStore] store backend %q", backend)
	}
}
