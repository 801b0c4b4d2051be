// cmd/order-service/main.go
package main

import (
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/redis"
	"bazaar/internal/service/order/application"
	"bazaar/internal/service/order/domain/port"
	"bazaar/internal/service/order/infrastructure"
	"bazaar/internal/service/order/infrastructure/adapter"
	"bazaar/internal/service/order/infrastructure/rule"
	"bazaar/internal/service/order/interfaces"
	"bazaar/internal/zookeeper"
)

const (
	serviceName = "order-service"
	servicePort = 8081
)

// main 函数是应用的"组装根" (Composition Root)：
// 创建并组装所有依赖项，然后交给 bootstrap 启动。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	// 1. 本地持久化
	db, err := infrastructure.NewMysqlDB(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}

	// 2. 分布式锁后端，由配置选择
	var locker port.DistributedLocker
	var closeLockBackend func()
	switch cfg.Infra.Lock.Backend {
	case "zookeeper":
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, time.Duration(cfg.Infra.Zookeeper.SessionTimeoutMs)*time.Millisecond)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		locker, err = adapter.NewZookeeperLockAdapter(conn)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to create zookeeper lock adapter")
		}
		closeLockBackend = conn.Close
	case "redis", "":
		redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		locker, err = adapter.NewRedisLockAdapter(redisClient)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to create redis lock adapter")
		}
		closeLockBackend = func() { redisClient.Close() }
	default:
		logger.Logger.Fatal().Str("backend", cfg.Infra.Lock.Backend).Msg("unknown lock backend")
	}

	// 3. 事件发布
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Infra.Kafka.Brokers...),
		Topic:    cfg.App.Kafka.OrderPlacedTopic,
		Balancer: &kafka.Hash{},
	}
	notifier := infrastructure.NewOrderPlacedProducerAdapter(writer)

	// 4. 下单准入规则
	policy, err := rule.NewCELPolicyAdapter(cfg.App.Policy.Expression)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to compile purchase policy")
	}

	// 5. 应用服务
	tracer := otel.Tracer(serviceName)
	svc := application.NewOrderApplicationService(
		infrastructure.NewGormInventoryLedger(db, tracer),
		infrastructure.NewGormOrderRepository(db),
		infrastructure.NewGormStockRepository(db),
		locker,
		policy,
		notifier,
		time.Duration(cfg.App.Lock.TTLMs)*time.Millisecond,
		application.RetryPolicy{
			Interval: time.Duration(cfg.App.Lock.RetryIntervalMs) * time.Millisecond,
			Budget:   time.Duration(cfg.App.Lock.WaitBudgetMs) * time.Millisecond,
		},
		tracer,
	)
	handler := interfaces.NewOrderHandler(svc)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func() {
			if err := writer.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing kafka writer")
			}
			closeLockBackend()
		},
	})
}
