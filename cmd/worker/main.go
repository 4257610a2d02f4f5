package main

import (
	"github.com/hibiken/asynq"

	"github.com/unbox-labs/backend-unbox/internal/config"
	"github.com/unbox-labs/backend-unbox/internal/obs"
	"github.com/unbox-labs/backend-unbox/internal/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, "info").With().Str("component", "worker").Logger()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	})

	provider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	mux := asynq.NewServeMux()
	mux.Handle(payment.TaskCancelAuthorization, payment.CancelWorker{Provider: provider, Log: logger})

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
}
