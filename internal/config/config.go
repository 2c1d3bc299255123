// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找，敏感字段可由环境变量覆盖
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName        string   `toml:"appName"`        // 应用名称
	Host           string   `toml:"host"`           // 监听地址，如 "0.0.0.0"
	Port           int      `toml:"port"`           // 监听端口，如 8000
	Mode           string   `toml:"mode"`           // 运行模式：dev / release
	ForceTLS       bool     `toml:"forceTLS"`       // 是否把 HTTP 请求重定向到 HTTPS
	AllowedOrigins []string `toml:"allowedOrigins"` // 允许的跨域来源，为空表示不限制
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"` // 无密码留空
	Db           int    `toml:"db"`
	CacheWorkers int    `toml:"cacheWorkers"` // 异步缓存任务协程数
	CacheBuffer  int    `toml:"cacheBuffer"`  // 异步缓存任务队列长度
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig Kafka 配置
// channel 模式下房间广播只在本进程内投递；kafka 模式下经由 deliveryTopic 扇出到所有网关实例
type KafkaConfig struct {
	MessageMode   string        `toml:"messageMode"`   // "channel" 或 "kafka"
	HostPort      string        `toml:"hostPort"`      // 如 "localhost:9092"
	DeliveryTopic string        `toml:"deliveryTopic"` // 房间投递主题
	Partition     int           `toml:"partition"`     // 分区数
	Timeout       time.Duration `toml:"timeout"`       // 超时时间（秒）
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // 签名密钥
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // 本地签发 Token 的有效期（分钟）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 范围 0-1023
}

// GatewayConfig WebSocket 网关配置
type GatewayConfig struct {
	SendBufferSize   int           `toml:"sendBufferSize"`   // 每个连接的发送缓冲区
	MaxMessageSize   int64         `toml:"maxMessageSize"`   // 单帧最大字节数
	PongWait         time.Duration `toml:"pongWait"`         // 读超时（秒）
	WriteWait        time.Duration `toml:"writeWait"`        // 写超时（秒）
	AnalyticsWorkers int           `toml:"analyticsWorkers"` // 统计计数协程数
	AnalyticsBuffer  int           `toml:"analyticsBuffer"`  // 统计计数队列长度
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	GatewayConfig   `toml:"gatewayConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		MainConfig: MainConfig{
			AppName: "chat_gateway",
			Host:    "0.0.0.0",
			Port:    8000,
			Mode:    "dev",
		},
		RedisConfig: RedisConfig{
			Host:         "127.0.0.1",
			Port:         6379,
			CacheWorkers: 15,
			CacheBuffer:  3000,
		},
		LogConfig: LogConfig{
			LogPath: "./logs",
			Level:   "info",
		},
		KafkaConfig: KafkaConfig{
			MessageMode:   "channel",
			DeliveryTopic: "chat_delivery",
			Partition:     1,
			Timeout:       1,
		},
		JWTConfig: JWTConfig{
			AccessTokenExpiry: 60,
		},
		SnowflakeConfig: SnowflakeConfig{MachineID: 1},
		GatewayConfig: GatewayConfig{
			SendBufferSize:   256,
			MaxMessageSize:   64 * 1024,
			PongWait:         60,
			WriteWait:        10,
			AnalyticsWorkers: 2,
			AnalyticsBuffer:  1024,
		},
	}
}

// LoadConfig 从多个候选路径加载配置文件，找到第一个可用的即停止
func LoadConfig(cfg *Config) error {
	paths := []string{
		"configs/config_local.toml",
		"configs/config.toml",
		"../../configs/config_local.toml", // 从 cmd 子目录运行时的路径
		"../../configs/config.toml",
	}

	for _, path := range paths {
		if _, err := toml.DecodeFile(path, cfg); err == nil {
			return nil
		}
	}

	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时加载配置文件和环境变量，配置文件缺失时使用默认值
func GetConfig() *Config {
	if config == nil {
		config = Default()
		_ = LoadConfig(config)
		if err := ApplyEnv(config); err != nil {
			fmt.Printf("config: apply env overrides failed: %v\n", err)
		}
	}
	return config
}
