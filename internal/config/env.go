package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envOverrides 可以由环境变量（或 .env 文件）覆盖的配置项
// 变量名统一带 CHAT_ 前缀，例如 CHAT_JWT_SECRET
type envOverrides struct {
	JWTSecret      string   `envconfig:"JWT_SECRET"`
	MysqlPassword  string   `envconfig:"MYSQL_PASSWORD"`
	RedisPassword  string   `envconfig:"REDIS_PASSWORD"`
	KafkaHostPort  string   `envconfig:"KAFKA_HOST_PORT"`
	MessageMode    string   `envconfig:"MESSAGE_MODE"`
	Port           int      `envconfig:"PORT"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// ApplyEnv 读取 .env（不存在时忽略）并把非空环境变量覆盖到配置上
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process("chat", &env); err != nil {
		return err
	}

	if env.JWTSecret != "" {
		cfg.JWTConfig.Secret = env.JWTSecret
	}
	if env.MysqlPassword != "" {
		cfg.MysqlConfig.Password = env.MysqlPassword
	}
	if env.RedisPassword != "" {
		cfg.RedisConfig.Password = env.RedisPassword
	}
	if env.KafkaHostPort != "" {
		cfg.KafkaConfig.HostPort = env.KafkaHostPort
	}
	if env.MessageMode != "" {
		cfg.KafkaConfig.MessageMode = env.MessageMode
	}
	if env.Port != 0 {
		cfg.MainConfig.Port = env.Port
	}
	if len(env.AllowedOrigins) > 0 {
		cfg.MainConfig.AllowedOrigins = env.AllowedOrigins
	}
	return nil
}
