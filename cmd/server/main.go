package main

import (
	"os"

	"gobridgerelay/EVMRPC"
	"gobridgerelay/bridge"
	"gobridgerelay/config"
	"gobridgerelay/rates"
	"gobridgerelay/redis"
	"gobridgerelay/workers"
	"gobridgerelay/workers/handlers"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.Info("starting token bridge relay")

	registry := config.Init()
	logger.Infof("active mechanism: %s", registry.Mechanism())

	// without Redis the relay still honors at-most-once within this process,
	// but loses cursors and the ledger on restart
	var store *redis.Store
	if config.Config.Server.RedisHost != "" {
		var err error
		store, err = redis.New(config.Config.Server.RedisHost, config.Config.Server.RedisPort, logger)
		if err != nil {
			logger.WithError(err).Fatal("cannot connect to Redis")
		}
	} else {
		logger.Warn("no Redis configured, running with in-memory state only")
		store = redis.NewMemory(logger)
	}

	clients := EVMRPC.New(registry, logger)

	mechanism, err := bridge.ForMechanism(registry.Mechanism())
	if err != nil {
		logger.WithError(err).Error("invalid mechanism")
		os.Exit(2)
	}

	resolver := rates.NewResolver(clients, registry, config.Config.FallbackRates, logger)
	relay := bridge.NewRelay(registry, mechanism, clients, store, store, resolver, logger)

	// one scan worker per source network, plus the API serving HTTPS server
	// (serves as main worker thread)
	for _, chainID := range registry.Sources() {
		network, _ := registry.Resolve(chainID)
		go workers.NewScanWorker(chainID, network, clients, store, relay, logger).Run()
	}

	workers.Worker_HTTP(handlers.New(registry, clients, store, resolver, relay, logger), logger)
}
