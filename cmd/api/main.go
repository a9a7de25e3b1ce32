package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gofiber/fiber/v2"

	"spaceapps-board/handler"
	"spaceapps-board/internal/config"
	"spaceapps-board/internal/events"
	"spaceapps-board/internal/integrations/paramstore"
	"spaceapps-board/internal/repository"
	"spaceapps-board/internal/usecase"
	"spaceapps-board/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// ---- Configuration (read only here) ----
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// run wires the service and serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg config.Config) error {
	log := cfg.NewLogger()
	slog.SetDefault(log)

	var awsCfg aws.Config
	if cfg.ParamPrefix != "" || cfg.StoreDriver == config.DriverDynamoDB {
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = loaded
	}

	if cfg.ParamPrefix != "" {
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return fmt.Errorf("create SSM client: %w", err)
		}
		values, err := params.Values(ctx, cfg.ParamPrefix)
		if err != nil {
			return fmt.Errorf("read parameters under %s: %w", cfg.ParamPrefix, err)
		}
		cfg = cfg.Overlay(values)
		log = cfg.NewLogger()
		slog.SetDefault(log)
	}

	// ---- Store ----
	store, closeStore, err := openStore(ctx, cfg, awsCfg, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	// ---- Events ----
	var publisher usecase.EventPublisher = events.Discard{}
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSStream, cfg.NATSSubjectPrefix, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Close(); err != nil {
				log.Error("failed to close NATS publisher", "err", err)
			}
		}()
		publisher = nc
	}

	// ---- Handler ----
	svc, err := usecase.NewRecordService(store, publisher, log)
	if err != nil {
		return fmt.Errorf("create record service: %w", err)
	}

	h, err := handler.NewHandler(svc,
		handler.WithLogger(log),
		handler.WithRequestTimeout(cfg.RequestTimeout),
		handler.WithAllowOrigins(cfg.CORSAllowOrigins),
		handler.WithAccessLog(os.Stderr),
		handler.WithStatic(web.Static()),
	)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}
	app := h.App()

	if cfg.RunningInLambda() {
		adapter, err := handler.NewLambdaAdapter(app)
		if err != nil {
			return fmt.Errorf("create lambda adapter: %w", err)
		}
		lambda.StartWithOptions(adapter.Handle, lambda.WithContext(ctx))
		return nil
	}

	return serve(ctx, app, cfg.Addr(), log)
}

// serve listens on addr until ctx is done. A listener failure is returned as soon
// as it happens.
func serve(ctx context.Context, app *fiber.App, addr string, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err == nil {
			return errors.New("server stopped unexpectedly")
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, awsCfg aws.Config, log *slog.Logger) (usecase.RecordStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverBadger:
		db, err := repository.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewBadgerStore(db, log)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := db.Close(); err != nil {
				log.Error("failed to close badger", "err", err)
			}
		}, nil
	case config.DriverDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		store, err := repository.NewDynamoStore(client, cfg.DynamoDBTable)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DynamoDBCreateTable {
			if err := store.EnsureTable(ctx); err != nil {
				return nil, nil, err
			}
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
