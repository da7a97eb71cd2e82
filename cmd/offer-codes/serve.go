package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/codec"
	"github.com/Chia-Network/offer-codes/config"
	"github.com/Chia-Network/offer-codes/exchange"
	"github.com/Chia-Network/offer-codes/httpapi"
	"github.com/Chia-Network/offer-codes/keys"
	"github.com/Chia-Network/offer-codes/logging"
	"github.com/Chia-Network/offer-codes/metrics"
	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage/grpcstore"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP exchange",
		Long: "Run the HTTP exchange with the configured trusted key and store.\n" +
			"Without --config the server is configured from " + config.EnvPublicKey + " and " + config.EnvListen + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAndValidate(configPath)
			if err != nil {
				return err
			}
			quietGin()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	return cmd
}

// quietGin puts gin in release mode and drops its own writers; requests are
// logged by the zap access log middleware instead.
func quietGin() {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard
	gin.DefaultErrorWriter = io.Discard
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	pk, err := cfg.PublicKey()
	if err != nil {
		return err
	}
	gate, err := keys.NewGate(pk)
	if err != nil {
		return err
	}
	scheme, err := cfg.Scheme()
	if err != nil {
		return err
	}

	store, closeStore, err := cfg.Storage.Open(ctx, registry.UsageServer, log.Named("storage"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()

	m := metrics.New()
	svc, err := exchange.New(exchange.Options{
		Codec:    codec.New(),
		Verifier: gate,
		Store:    store,
		Scheme:   scheme,
		Logger:   log.Named("exchange"),
		Metrics:  m,
	})
	if err != nil {
		return err
	}
	srv, err := httpapi.New(httpapi.Options{
		Service:           svc,
		Logger:            log.Named("http"),
		Metrics:           m,
		MetricsPath:       cfg.Server.MetricsPath,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	log.Info("offer-codes starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("key_alg", string(gate.Alg())),
		zap.String("hash_alg", string(scheme.Alg)),
		zap.Int("code_width", scheme.Width()),
		zap.Int("backends", len(cfg.Storage.Backends)),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Listen)
}

func newStoreServeCmd() *cobra.Command {
	var (
		listen    string
		backend   string
		settings  []string
		hashAlg   string
		codeWidth int
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:   "store-serve",
		Short: "Serve a storage backend over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kv, err := parseSettings(settings)
			if err != nil {
				return usageError{err}
			}
			scheme, err := offer.NewScheme(hashAlg, codeWidth)
			if err != nil {
				return usageError{err}
			}
			log, closeLog, err := logging.New(logging.Config{Level: logLevel})
			if err != nil {
				return usageError{err}
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeFn, err := registry.Open(ctx, backend, registry.UsageDaemon, kv, log.Named("storage"))
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			g := grpcstore.NewGRPCServer(&grpcstore.Server{Store: store, Scheme: scheme}, log.Named("grpc"))
			go func() {
				<-ctx.Done()
				g.GracefulStop()
			}()

			log.Info("store daemon listening",
				zap.String("addr", lis.Addr().String()),
				zap.String("backend", backend),
				zap.Int("code_width", scheme.Width()),
			)
			return g.Serve(lis)
		},
	}
	f := cmd.Flags()
	f.StringVar(&listen, "listen", "127.0.0.1:7777", "listen address")
	f.StringVar(&backend, "backend", "badger", "storage backend name (see: offer-codes backends)")
	f.StringArrayVar(&settings, "setting", nil, "backend setting key=value (repeatable)")
	f.StringVar(&hashAlg, "hash-alg", string(offer.SHA256), "content hash algorithm")
	f.IntVar(&codeWidth, "code-width", offer.DefaultCodeWidth, "code width in bytes")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func newBackendsCmd() *cobra.Command {
	var daemon bool
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List linked storage backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usage := registry.UsageServer
			if daemon {
				usage = registry.UsageDaemon
			}
			out := cmd.OutOrStdout()
			for _, b := range registry.List(usage) {
				if b.Description == "" {
					fmt.Fprintf(out, "%s\n", b.Name)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&daemon, "daemon", false, "list backends usable by store-serve")
	return cmd
}
