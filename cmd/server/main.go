package main

import (
	"net/http"
	"os"

	"taskboard-backend/api"
	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/logger"
)

func main() {
	cfg := config.GetCached()
	log := logger.New(os.Stdout, cfg.Debug)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var store database.Store
	if cfg.UseLocalDB {
		log.Info().Msg("using in-memory store")
		store = database.NewMemoryStore()
	} else {
		pg, err := database.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pg.Close()
		store = pg
	}

	router := api.NewRouter(cfg, store, log)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Environment).Msg("server listening")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
