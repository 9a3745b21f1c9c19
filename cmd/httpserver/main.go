package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/qkd-transfer-backend/api/qkdhandler"
	"github.com/ruteri/qkd-transfer-backend/api/transferhandler"
	"github.com/ruteri/qkd-transfer-backend/cmd/flags"
	"github.com/ruteri/qkd-transfer-backend/common"
	"github.com/ruteri/qkd-transfer-backend/httpserver"
	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"github.com/ruteri/qkd-transfer-backend/metrics"
	"github.com/ruteri/qkd-transfer-backend/qkd"
	"github.com/ruteri/qkd-transfer-backend/storage"
	"github.com/ruteri/qkd-transfer-backend/transfer"
	"github.com/urfave/cli/v2"
)

var (
	storageFlag = &cli.StringFlag{
		Name:    "storage",
		Value:   "file://./qkd-data",
		Usage:   "comma-separated ciphertext storage URIs (file, s3, ipfs, vault, redis)",
		EnvVars: []string{"QKD_STORAGE"},
	}
	qubitsPerRoundFlag = &cli.IntFlag{
		Name:    "qubits-per-round",
		Value:   qkd.DefaultQubitsPerRound,
		Usage:   "qubits simulated per BB84 round (1-20)",
		EnvVars: []string{"QKD_QUBITS_PER_ROUND"},
	}
	targetBitsFlag = &cli.IntFlag{
		Name:    "target-bits",
		Value:   qkd.DefaultTargetBits,
		Usage:   "default key size in bits, a multiple of 8 up to 512",
		EnvVars: []string{"QKD_TARGET_BITS"},
	}
	maxRoundsFlag = &cli.IntFlag{
		Name:    "max-rounds",
		Value:   qkd.DefaultMaxRounds,
		Usage:   "rounds to run before giving up on a key",
		EnvVars: []string{"QKD_MAX_ROUNDS"},
	}
	keygenTimeoutFlag = &cli.DurationFlag{
		Name:    "keygen-timeout",
		Value:   5 * time.Second,
		Usage:   "deadline for a single key generation request, 0 to disable",
		EnvVars: []string{"QKD_KEYGEN_TIMEOUT"},
	}
	maxUploadBytesFlag = &cli.Int64Flag{
		Name:    "max-upload-bytes",
		Value:   transferhandler.DefaultMaxUploadBytes,
		Usage:   "largest accepted multipart body for /upload and /decrypt",
		EnvVars: []string{"QKD_MAX_UPLOAD_BYTES"},
	}
)

func main() {
	if err := flags.LoadEnvFile(os.Args); err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:  "httpserver",
		Usage: "Serve simulated QKD keys and encrypted file transfers",
		Flags: append([]cli.Flag{
			storageFlag,
			qubitsPerRoundFlag,
			targetBitsFlag,
			maxRoundsFlag,
			keygenTimeoutFlag,
			maxUploadBytesFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			cfg := flags.ConfigureServer(cCtx, logger)

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}
			cfg.Metrics = metricsSrv

			locations, err := interfaces.ParseStorageBackendLocations(cCtx.String(storageFlag.Name))
			if err != nil {
				logger.Error("Invalid storage configuration", "err", err)
				return err
			}
			backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
			if err != nil {
				logger.Error("Failed to create storage backend", "err", err)
				return err
			}
			logger.Info("Ciphertext storage configured", "backend", backend.Name(), "locations", len(locations))
			cfg.ReadinessCheck = backend.Available

			accumulator, err := qkd.NewKeyAccumulator(qkd.Config{
				QubitsPerRound: cCtx.Int(qubitsPerRoundFlag.Name),
				TargetBits:     cCtx.Int(targetBitsFlag.Name),
				MaxRounds:      cCtx.Int(maxRoundsFlag.Name),
			}, qkd.WithLogger(logger))
			if err != nil {
				logger.Error("Invalid key generation configuration", "err", err)
				return err
			}

			store := transfer.NewStore(backend, logger)
			collectors := metricsSrv.Collectors()

			server, err := httpserver.New(cfg,
				qkdhandler.NewHandler(accumulator, collectors, cCtx.Duration(keygenTimeoutFlag.Name), logger),
				transferhandler.NewHandler(store, collectors, cCtx.Int64(maxUploadBytesFlag.Name), logger),
			)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete", "transfersCreated", store.Created())

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
