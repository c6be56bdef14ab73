package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"notesage/internal/config"
	postgresClient "notesage/internal/platform/postgres"
	rabbitmqClient "notesage/internal/platform/rabbitmq"
	redisClient "notesage/internal/platform/redis"
	"notesage/internal/store"
	"notesage/internal/worker"
)

type App struct {
	Config      *config.Config
	Postgres    *pgxpool.Pool
	VectorStore *store.VectorStore
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Sweeper     *worker.GenerationSweeper

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	pool, err := postgresClient.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, err
	}

	vectorStore, err := store.New(pool, store.Config{
		TableName: cfg.Postgres.TableName,
		VectorDim: cfg.LLM.EmbeddingDim,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		pool.Close()
		_ = redisCli.Close()
		return nil, err
	}

	sweeper := worker.NewGenerationSweeper(mqConn, vectorStore, cfg.RabbitMQ.RetireBatchQueue)
	if err := sweeper.Start(ctx); err != nil {
		pool.Close()
		_ = redisCli.Close()
		_ = mqConn.Close()
		return nil, fmt.Errorf("start generation sweeper failed: %w", err)
	}

	return &App{
		Config:      cfg,
		Postgres:    pool,
		VectorStore: vectorStore,
		Redis:       redisCli,
		MQConn:      mqConn,
		Sweeper:     sweeper,
		StartedAt:   time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Sweeper != nil {
		a.Sweeper.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	return closeErr
}
