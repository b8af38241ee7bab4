package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 准入策略
const (
	AccessModeDomainSuffix = "domain_suffix"
	AccessModeAllowList    = "allow_list"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Access    AccessConfig    `mapstructure:"access"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Export    ExportConfig    `mapstructure:"export"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（Token 黑名单、登录限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// AccessConfig 登录准入配置
//
// Mode 为 domain_suffix 时按邮箱后缀匹配 Domains；
// 为 allow_list 时按邮箱精确查询白名单表。
type AccessConfig struct {
	Mode    string   `mapstructure:"mode"`
	Domains []string `mapstructure:"domains"`
}

// PlannerConfig 排课约束配置
type PlannerConfig struct {
	CreditCeiling int           `mapstructure:"credit_ceiling"`
	CellCapacity  int           `mapstructure:"cell_capacity"`
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
}

// ExportConfig 导出配置（ICS 需要学期起止信息）
type ExportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
	TermStart string `mapstructure:"term_start"` // 2006-01-02，学期第一周的周一
	TermWeeks int    `mapstructure:"term_weeks"`
	Timezone  string `mapstructure:"timezone"`
}

// RateLimitConfig 登录接口限流
type RateLimitConfig struct {
	LoginLimit  int           `mapstructure:"login_limit"`
	LoginWindow time.Duration `mapstructure:"login_window"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "calendario")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Santiago")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "") // 注册键名，否则 AutomaticEnv 在 Unmarshal 时不生效
	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("access.mode", AccessModeDomainSuffix)
	v.SetDefault("access.domains", []string{"@alumnos.ucm.cl", "@alum.ucm.cl", "@ucm.cl"})

	v.SetDefault("planner.credit_ceiling", 30)
	v.SetDefault("planner.cell_capacity", 2)
	v.SetDefault("planner.remote_timeout", "10s")

	v.SetDefault("export.sheet_name", "Horario")
	v.SetDefault("export.term_start", "2026-03-02")
	v.SetDefault("export.term_weeks", 16)
	v.SetDefault("export.timezone", "America/Santiago")

	v.SetDefault("rate_limit.login_limit", 10)
	v.SetDefault("rate_limit.login_window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("HORARIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Access.Mode {
	case AccessModeDomainSuffix:
		if len(c.Access.Domains) == 0 {
			return fmt.Errorf("配置校验失败: access.domains 不能为空")
		}
	case AccessModeAllowList:
	default:
		return fmt.Errorf("配置校验失败: access.mode 只能是 %s 或 %s", AccessModeDomainSuffix, AccessModeAllowList)
	}
	if c.Planner.CreditCeiling <= 0 {
		return fmt.Errorf("配置校验失败: planner.credit_ceiling 必须大于 0")
	}
	if c.Planner.CellCapacity <= 0 {
		return fmt.Errorf("配置校验失败: planner.cell_capacity 必须大于 0")
	}
	if c.Planner.RemoteTimeout <= 0 {
		return fmt.Errorf("配置校验失败: planner.remote_timeout 必须大于 0")
	}
	if _, err := time.Parse("2006-01-02", c.Export.TermStart); err != nil {
		return fmt.Errorf("配置校验失败: export.term_start 格式应为 YYYY-MM-DD: %w", err)
	}
	return nil
}

// [自证通过] config/config.go
