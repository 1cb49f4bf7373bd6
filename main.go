package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/smartinbox/server/agent/handler"
	"github.com/smartinbox/server/agent/llm"
	statex "github.com/smartinbox/server/agent/state"
	"github.com/smartinbox/server/agent/workflow"
	configx "github.com/smartinbox/server/pkg/config"
	_ "github.com/smartinbox/server/pkg/logger/autoload"
	"github.com/smartinbox/server/server"
)

type AppConfig struct {
	// StateBackend selects where conversation snapshots live:
	// memory, postgres or redis.
	StateBackend string `envconfig:"STATE_BACKEND" split_words:"true" default:"memory"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	llmCfg := configx.MustNew[llm.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm configuration")
	}

	domainSvc, err := llm.NewCompletion(llmCfg.OpenRouterFor(llm.RoleDomain))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize domain completion service")
	}
	classifierSvc, err := llm.NewCompletion(llmCfg.OpenRouterFor(llm.RoleClassifier))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize classifier completion service")
	}
	composerSvc, err := llm.NewCompletion(llmCfg.OpenRouterFor(llm.RoleComposer))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize composer completion service")
	}

	registry, err := handler.NewRegistry(handler.Config{
		Completion:           domainSvc,
		ClassifierCompletion: classifierSvc,
		ComposerCompletion:   composerSvc,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build handler registry")
	}

	store, cleanup, err := buildStore(appCfg.StateBackend)
	if err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.StateBackend).Msg("initialize state backend")
	}
	if cleanup != nil {
		defer cleanup()
	}

	engine, err := workflow.New(workflow.Config{
		Registry: registry,
		Store:    store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build workflow engine")
	}

	srvCfg := configx.MustNew[server.Config]("SERVER")
	router := server.Router(server.NewHandler(engine), *srvCfg)

	log.Info().Str("addr", srvCfg.Addr).Str("state_backend", appCfg.StateBackend).Msg("starting inbox server")
	if err := router.Run(srvCfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func buildStore(backend string) (statex.Store, func(), error) {
	switch backend {
	case "", "memory":
		return nil, nil, nil
	case "postgres":
		cfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		store, err := statex.NewPostgresStore(*cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Init(context.Background()); err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		cfg := configx.MustNew[statex.RedisConfig]("REDIS")
		store, err := statex.NewRedisStore(*cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
