package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/corzoapp/transfer_service/api"
	"github.com/corzoapp/transfer_service/chain"
	"github.com/corzoapp/transfer_service/config"
	"github.com/corzoapp/transfer_service/db"
	"github.com/corzoapp/transfer_service/domain"
	"github.com/corzoapp/transfer_service/relayer"
	"github.com/corzoapp/transfer_service/repository"
	"github.com/corzoapp/transfer_service/service"
)

func init() {
	//nolint:errcheck
	godotenv.Load(".env")
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongo, err := db.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer mongo.Close(context.Background())
	if err := mongo.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}

	walletRepo := repository.NewWalletRepo(mongo.WalletColl)
	accountRepo := repository.NewAccountRepo(mongo.UserColl)
	submissionRepo := repository.NewSubmissionRepo(mongo.SubmissionColl)

	vault := domain.NewKeyVault(walletRepo, cfg.Vault.Passphrase)
	builder := domain.NewBuilder()
	signer := chain.NewSigner(cfg.Eth, vault)

	eth, err := chain.NewETHChain(cfg.Eth)
	if err != nil {
		log.Fatal(err)
	}

	relayerClient := relayer.New(cfg.Relayer)
	resolver := service.NewResolver(accountRepo, vault)
	transfers := service.NewTransferService(vault, resolver, builder, signer, relayerClient, submissionRepo, logger)
	status := service.NewStatusService(relayerClient, eth, submissionRepo, logger)
	reconciler := service.NewReconciler(status, cfg.ReconcileInterval, logger)

	handler := api.NewTransferHandler(transfers, status, eth, logger)

	r := gin.Default()
	r.POST("/api/usdt/transfer", handler.Transfer)
	r.GET("/api/usdt/status", handler.Status)
	r.POST("/api/wallet", handler.CreateWallet)
	r.GET("/api/wallet", handler.Wallet)
	r.GET("/api/users/exists", handler.RecipientExists)
	r.GET("/api/health", handler.Health)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errWg, errCtx := errgroup.WithContext(ctx)

	errWg.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	errWg.Go(func() error {
		err := reconciler.Run(errCtx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	errWg.Go(func() error {
		<-errCtx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := errWg.Wait(); err != nil {
		log.Fatal(err)
	}
}
