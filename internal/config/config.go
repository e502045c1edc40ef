package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // 为空时允许任意来源
}

// DatabaseConfig 数据库配置，driver 支持 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite 文件路径
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	ChangeEvent string `mapstructure:"change_event"`
}

// AuthConfig 身份提供方签发的会话令牌配置
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	Issuer            string `mapstructure:"issuer"`
	AdminKeyHash      string `mapstructure:"admin_key_hash"` // bcrypt 哈希
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
}

type BusinessConfig struct {
	LockTTLSeconds          int          `mapstructure:"lock_ttl_seconds"`
	MaxRetryCount           int          `mapstructure:"max_retry_count"`
	LeaderboardCacheSeconds int          `mapstructure:"leaderboard_cache_seconds"`
	NotificationTTLHours    int          `mapstructure:"notification_ttl_hours"`
	AuditIntervalSeconds    int          `mapstructure:"audit_interval_seconds"`
	Policy                  PolicyConfig `mapstructure:"policy"`
}

// PolicyConfig 业务策略开关，默认值保持线上观察到的行为
type PolicyConfig struct {
	RestoreWithdrawOnReject bool `mapstructure:"restore_withdraw_on_reject"`
	JoinOnPaymentApproval   bool `mapstructure:"join_on_payment_approval"`
	EnforceCapacity         bool `mapstructure:"enforce_capacity"`
}

func (b BusinessConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BusinessConfig) LeaderboardTTL() time.Duration {
	return time.Duration(b.LeaderboardCacheSeconds) * time.Second
}

func (b BusinessConfig) NotificationTTL() time.Duration {
	return time.Duration(b.NotificationTTLHours) * time.Hour
}

func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

var GlobalConfig *Config

// Default 返回带默认值的配置，测试与 Load 共用
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "mysql", Port: 3306, MaxOpenConns: 20, MaxIdleConns: 5},
		Redis:    RedisConfig{Host: "127.0.0.1", Port: 6379},
		Kafka:    KafkaConfig{Topic: KafkaTopicConfig{ChangeEvent: "ffarena.change_event"}},
		Auth:     AuthConfig{Issuer: "ffarena", SessionTTLMinutes: 24 * 60},
		Business: BusinessConfig{
			LockTTLSeconds:          30,
			MaxRetryCount:           5,
			LeaderboardCacheSeconds: 60,
			NotificationTTLHours:    24,
			AuditIntervalSeconds:    300,
			Policy:                  PolicyConfig{EnforceCapacity: true},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("kafka.topic.change_event", d.Kafka.Topic.ChangeEvent)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.session_ttl_minutes", d.Auth.SessionTTLMinutes)
	v.SetDefault("business.lock_ttl_seconds", d.Business.LockTTLSeconds)
	v.SetDefault("business.max_retry_count", d.Business.MaxRetryCount)
	v.SetDefault("business.leaderboard_cache_seconds", d.Business.LeaderboardCacheSeconds)
	v.SetDefault("business.notification_ttl_hours", d.Business.NotificationTTLHours)
	v.SetDefault("business.audit_interval_seconds", d.Business.AuditIntervalSeconds)
	v.SetDefault("business.policy.enforce_capacity", d.Business.Policy.EnforceCapacity)
}

// Load 读取配置文件，环境变量 FFARENA_<SECTION>_<KEY> 可覆盖文件中的值
func Load(configPath string) (*Config, error) {
	// .env 只是本地开发的便利，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FFARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig 加载配置文件，失败直接退出
func LoadConfig(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	GlobalConfig = cfg
	return cfg
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return errors.New("sqlite 需要配置 database.path")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret 不能为空")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("启用 kafka 时 kafka.brokers 不能为空")
	}
	return nil
}
