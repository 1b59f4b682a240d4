package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置（DASHBOARD_SOURCE=sql 时使用）
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis 配置（会话存储）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config o2d-dashboard 服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	// 上游 O2D API（auth 与 dashboard 基地址）
	Upstream struct {
		APIBaseURL  string
		AuthBaseURL string
		Timeout     int // seconds
	}

	Dashboard struct {
		// 快照来源：http（上游 API）或 sql（直连派车登记库）
		Source string
		// 刷新间隔（秒），默认 300（5 分钟）
		RefreshInterval int
	}

	Database DatabaseConfig
	Redis    RedisConfig

	Session struct {
		TTL int // seconds
	}

	Report struct {
		// 外部渲染器地址；为空时仅生成文档，不做移交
		RendererURL string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8094")

	cfg.Upstream.APIBaseURL = getEnv("UPSTREAM_API_BASE_URL", "http://localhost:8080/api")
	cfg.Upstream.AuthBaseURL = getEnv("UPSTREAM_AUTH_BASE_URL", "http://localhost:8080/api")
	cfg.Upstream.Timeout = getEnvInt("UPSTREAM_TIMEOUT", 30)

	cfg.Dashboard.Source = getEnv("DASHBOARD_SOURCE", "http")
	cfg.Dashboard.RefreshInterval = getEnvInt("DASHBOARD_REFRESH_INTERVAL", 300)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "o2d")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 5)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 2)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Session.TTL = getEnvInt("SESSION_TTL", 12*3600)

	cfg.Report.RendererURL = getEnv("REPORT_RENDERER_URL", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Dashboard.Source != "http" && cfg.Dashboard.Source != "sql" {
		return nil, fmt.Errorf("unsupported dashboard source: %s", cfg.Dashboard.Source)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
