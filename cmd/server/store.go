package main

import (
	"context"
	"fmt"

	"agriconnect/internal/config"
	"agriconnect/internal/repository"

	"github.com/rs/zerolog"
)

// openUserRepository connects the configured backend. The returned func releases it.
func openUserRepository(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := config.ConnectDB(ctx, cfg.DB, log)
		if err != nil {
			return nil, nil, err
		}
		if err := config.AutoMigrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("postgres migrations applied")
		return repository.NewUserRepository(pool), pool.Close, nil

	case config.StoreDriverMongo:
		client, err := config.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo, err := repository.NewMongoUserRepository(ctx, client.Database(cfg.Mongo.Database))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return repo, closeFn, nil

	case config.StoreDriverSQLite:
		db, err := config.OpenSQLite(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dsn", cfg.SQLite.DSN).Msg("opened sqlite")
		return repository.NewSQLiteUserRepository(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
