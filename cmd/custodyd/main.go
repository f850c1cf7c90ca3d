// custodyd serves the custodial wallet HTTP API.
//
// Startup order matters: config, cipher key, store (with its unique index),
// legacy migration, cache warm-up, then traffic.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/solpump/custodian/custody"
	"github.com/solpump/custodian/internal/api"
	"github.com/solpump/custodian/internal/cache"
	"github.com/solpump/custodian/internal/client"
	"github.com/solpump/custodian/internal/config"
	"github.com/solpump/custodian/internal/crypto"
	"github.com/solpump/custodian/internal/handler"
	"github.com/solpump/custodian/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := config.Init(); err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	cfg := config.Get()

	key, err := crypto.ParseKey(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("invalid ENCRYPTION_KEY", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	walletStore, err := store.NewMongoStore(ctx, mongoClient, cfg.MongoDatabase)
	if err != nil {
		log.Fatal("failed to initialize wallet store", zap.Error(err))
	}

	svc := custody.NewService(walletStore, cache.New(log), key, log)

	// Legacy wallets must land in the store before the cache is built so the
	// warm-up below sees them too.
	if cfg.LegacyWalletsFile != "" {
		legacy, err := custody.LoadLegacyWallets(cfg.LegacyWalletsFile)
		if err != nil {
			log.Fatal("failed to read legacy wallets file", zap.Error(err))
		}
		migrated := svc.MigrateLegacy(ctx, legacy)
		log.Info("legacy wallet migration finished",
			zap.Int("candidates", len(legacy)),
			zap.Int("migrated", migrated))
	}

	records, err := walletStore.All(ctx)
	if err != nil {
		log.Fatal("failed to load wallet records", zap.Error(err))
	}
	loaded := svc.WarmCache(records)
	log.Info("wallet cache loaded", zap.Int("wallets", loaded))

	solanaClient := client.NewSolanaClient(cfg.SolanaRPCURL)
	issuer, err := custody.NewIssuer(svc, solanaClient, cfg.BurnAddress,
		cfg.TokenCreationFeeSOL, cfg.SubmitTimeout(), log)
	if err != nil {
		log.Fatal("failed to configure token issuer", zap.Error(err))
	}

	walletHandler := handler.NewWalletHandler(svc, issuer, solanaClient, client.NewCoinGeckoClient(), log)
	router := api.SetupRouter(walletHandler)

	addr := ":" + cfg.Port
	log.Info("starting server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
