package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_gateway/internal/config"
	dao "chat_gateway/internal/dao/mysql"
	myredis "chat_gateway/internal/dao/redis"
	"chat_gateway/internal/gateway"
	"chat_gateway/internal/handler"
	"chat_gateway/internal/https_server"
	"chat_gateway/internal/infrastructure/logger"
	"chat_gateway/internal/infrastructure/mq"
	"chat_gateway/internal/service"
	"chat_gateway/pkg/util/jwt"
	"chat_gateway/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("Logger initialized")

	if conf.JWTConfig.Secret == "" {
		zap.L().Fatal("jwtConfig.secret is empty, set it in config or CHAT_JWT_SECRET")
	}

	// 3. 初始化雪花 ID、JWT 和校验翻译
	snowflake.Init(conf.SnowflakeConfig.MachineID)
	tokens := jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	if err := handler.InitTrans("en"); err != nil {
		zap.L().Fatal("Init validator translator failed", zap.Error(err))
	}

	// 4. 初始化数据库
	db, repos, err := dao.Init(&conf.MysqlConfig)
	if err != nil {
		zap.L().Fatal("Init mysql failed", zap.Error(err))
	}
	zap.L().Info("MySQL initialized")

	// 5. 初始化 Redis，不可用时关闭分页缓存继续运行
	var cache myredis.AsyncCacheService
	redisCache, err := myredis.Init(&conf.RedisConfig)
	if err != nil {
		zap.L().Warn("Redis unavailable, page cache disabled", zap.Error(err))
	} else {
		cache = redisCache
		zap.L().Info("Redis initialized")
	}

	// 6. 初始化 Service 层
	services := service.NewServices(repos, cache, conf.GatewayConfig)

	// 7. 初始化 Hub 和房间投递通道
	hub := gateway.NewHub(services.Analytics)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	var publisher gateway.Publisher = hub
	var kafkaPublisher *mq.KafkaPublisher
	var kafkaConsumer *mq.KafkaConsumer
	if conf.KafkaConfig.MessageMode == "kafka" {
		if err := mq.EnsureTopic(conf.KafkaConfig); err != nil {
			zap.L().Fatal("Ensure kafka topic failed", zap.Error(err))
		}
		kafkaPublisher = mq.NewKafkaPublisher(conf.KafkaConfig)
		kafkaConsumer = mq.NewKafkaConsumer(conf.KafkaConfig, hub)
		go kafkaConsumer.Run(hubCtx)
		publisher = kafkaPublisher
		zap.L().Info("Kafka delivery enabled", zap.String("topic", conf.KafkaConfig.DeliveryTopic))
	}
	services.Analytics.SetNotifier(publisher)

	// 8. 初始化网关和 HTTP 服务
	dispatcher := gateway.NewDispatcher(hub, services.Message, publisher)
	gw := gateway.NewServer(hub, dispatcher, tokens, gateway.OptionsFromConfig(conf.GatewayConfig, conf.MainConfig))
	engine := https_server.Init(handler.NewHandlers(services, gw), conf.MainConfig)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}

	// 9. 启动服务
	go func() {
		zap.L().Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server running fault", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("Server shutdown failed", zap.Error(err))
	}

	// 先停 Hub 再关 Kafka，避免消费者向已关闭的 Hub 投递
	stopHub()
	<-hub.Done()
	if kafkaConsumer != nil {
		_ = kafkaConsumer.Close()
	}
	if kafkaPublisher != nil {
		_ = kafkaPublisher.Close()
	}

	services.Close()
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zap.L().Info("Server exited")
}
