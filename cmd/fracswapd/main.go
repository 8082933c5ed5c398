package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"fracswap/config"
	"fracswap/core/events"
	"fracswap/core/genesis"
	"fracswap/core/state"
	"fracswap/crypto"
	"fracswap/native/pool"
	"fracswap/native/registry"
	"fracswap/observability/logging"
	"fracswap/rpc"
	"fracswap/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var genesisMarkerKey = []byte("fracswap/genesis-applied")

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FRACSWAP_ENV"))
	logger := logging.Setup("fracswap", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	operator, err := crypto.DecodeAddress(cfg.OperatorAddress)
	if err != nil {
		panic(fmt.Sprintf("Invalid OperatorAddress: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)

	if err := applyGenesis(cfg, db, manager, logger); err != nil {
		panic(fmt.Sprintf("Failed to apply genesis: %v", err))
	}

	reg := registry.New(manager, operator.Array())
	collector := events.NewCollector()

	engine := pool.NewEngine()
	engine.SetState(manager)
	engine.SetAuthority(reg)
	engine.SetEmitter(collector)

	server := rpc.NewServer(engine, reg, collector)

	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("Metrics endpoint listening", slog.String("address", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("Metrics endpoint failed", slog.Any("error", err))
			}
		}()
	}

	logger.Info("RPC server listening",
		slog.String("address", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName),
		slog.String("operator", operator.String()),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyGenesis seeds the ledger from the configured genesis document exactly
// once per data directory.
func applyGenesis(cfg *config.Config, db storage.Database, manager *state.Manager, logger *slog.Logger) error {
	path := strings.TrimSpace(cfg.GenesisFile)
	if path == "" {
		return nil
	}
	if _, err := db.Get(genesisMarkerKey); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	doc, err := genesis.Load(path)
	if err != nil {
		return err
	}
	if err := genesis.Apply(doc, manager); err != nil {
		return err
	}
	if err := db.Put(genesisMarkerKey, []byte{1}); err != nil {
		return err
	}
	logger.Info("Genesis applied",
		slog.String("path", path),
		slog.Int("accounts", len(doc.Accounts)),
		slog.Int("tokens", len(doc.Tokens)),
		slog.Int("items", len(doc.Items)),
	)
	return nil
}
