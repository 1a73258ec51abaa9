package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Store      StoreConfig      `mapstructure:"store"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Crisis     CrisisConfig     `mapstructure:"crisis"`
	Feedback   FeedbackConfig   `mapstructure:"feedback"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

type ServerConfig struct {
	AdminPort   int           `mapstructure:"admin_port"`
	EnginePort  int           `mapstructure:"engine_port"`
	MetricsPort int           `mapstructure:"metrics_port"`
	Type        string        `mapstructure:"type"`
	Host        string        `mapstructure:"host"`
	SecretKey   string        `mapstructure:"secret_key"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Workers int  `mapstructure:"workers"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// KafkaConfig holds the broker list shared by the notifier and the audit
// exporter. Settings is passed through to the producer as-is.
type KafkaConfig struct {
	Enabled            bool                   `mapstructure:"enabled"`
	Brokers            string                 `mapstructure:"brokers"`
	NotificationsTopic string                 `mapstructure:"notifications_topic"`
	AuditTopic         string                 `mapstructure:"audit_topic"`
	Settings           map[string]interface{} `mapstructure:"settings"`
}

type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type RetryConfig struct {
	QueueSize         int           `mapstructure:"queue_size"`
	Workers           int           `mapstructure:"workers"`
	CriticalQueueSize int           `mapstructure:"critical_queue_size"`
	CriticalWorkers   int           `mapstructure:"critical_workers"`
	InitialInterval   time.Duration `mapstructure:"initial_interval"`
	MaxInterval       time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime    time.Duration `mapstructure:"max_elapsed_time"`
	DrainTimeout      time.Duration `mapstructure:"drain_timeout"`
}

type ModerationConfig struct {
	CrisisThreshold int           `mapstructure:"crisis_threshold"`
	ReviewThreshold int           `mapstructure:"review_threshold"`
	RecencyWeight   float64       `mapstructure:"recency_weight"`
	RecencyWindow   time.Duration `mapstructure:"recency_window"`
	TrendWeight     float64       `mapstructure:"trend_weight"`
	HistorySize     int           `mapstructure:"history_size"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	MaxTextBytes    int           `mapstructure:"max_text_bytes"`
	CrisisReply     string        `mapstructure:"crisis_reply"`
	BlockedReply    string        `mapstructure:"blocked_reply"`
}

type CrisisConfig struct {
	SLA         time.Duration `mapstructure:"sla"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	MonitorSpec string        `mapstructure:"monitor_spec"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Feed        FeedConfig    `mapstructure:"feed"`
}

// FeedConfig bounds the live alert websocket feed.
type FeedConfig struct {
	MaxConnections int           `mapstructure:"max_connections"`
	Buffer         int           `mapstructure:"buffer"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
}

type FeedbackConfig struct {
	Window               time.Duration `mapstructure:"window"`
	MinSamples           int           `mapstructure:"min_samples"`
	FalsePositiveCeiling float64       `mapstructure:"false_positive_ceiling"`
	ReductionStep        float64       `mapstructure:"reduction_step"`
	CrisisWeightFloor    int           `mapstructure:"crisis_weight_floor"`
	AutoApply            bool          `mapstructure:"auto_apply"`
	QueueKey             string        `mapstructure:"queue_key"`
	PopTimeout           time.Duration `mapstructure:"pop_timeout"`
}

type DictionaryConfig struct {
	RefreshSpec string `mapstructure:"refresh_spec"`
}

type AuditConfig struct {
	WALDir      string `mapstructure:"wal_dir"`
	QueueSize   int    `mapstructure:"queue_size"`
	Workers     int    `mapstructure:"workers"`
	CompactSpec string `mapstructure:"compact_spec"`
	Export      bool   `mapstructure:"export"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("⚠️ Warning: Could not load main config file: %v", err)
	}

	setDefaultValues(&globalConfig)

	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues(cfg *Config) {
	if cfg.Server.Type == "" {
		cfg.Server.Type = "engine"
	}
	if cfg.Server.EnginePort == 0 {
		cfg.Server.EnginePort = 8081
	}
	if cfg.Server.AdminPort == 0 {
		cfg.Server.AdminPort = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Server.TokenTTL == 0 {
		cfg.Server.TokenTTL = 12 * time.Hour
	}
	if cfg.Metrics.Workers == 0 {
		cfg.Metrics.Workers = 2
	}

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Kafka.NotificationsTopic == "" {
		cfg.Kafka.NotificationsTopic = "careguard.crisis-alerts"
	}
	if cfg.Kafka.AuditTopic == "" {
		cfg.Kafka.AuditTopic = "careguard.audit"
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "postgres"
	}
	if cfg.Store.Timeout == 0 {
		cfg.Store.Timeout = 2 * time.Second
	}
	if cfg.Store.Breaker.MaxRequests == 0 {
		cfg.Store.Breaker.MaxRequests = 1
	}
	if cfg.Store.Breaker.Interval == 0 {
		cfg.Store.Breaker.Interval = 60 * time.Second
	}
	if cfg.Store.Breaker.Timeout == 0 {
		cfg.Store.Breaker.Timeout = 15 * time.Second
	}
	if cfg.Store.Breaker.FailureThreshold == 0 {
		cfg.Store.Breaker.FailureThreshold = 5
	}
	if cfg.Store.Retry.QueueSize == 0 {
		cfg.Store.Retry.QueueSize = 4096
	}
	if cfg.Store.Retry.Workers == 0 {
		cfg.Store.Retry.Workers = 2
	}
	if cfg.Store.Retry.CriticalQueueSize == 0 {
		cfg.Store.Retry.CriticalQueueSize = 512
	}
	if cfg.Store.Retry.CriticalWorkers == 0 {
		cfg.Store.Retry.CriticalWorkers = 2
	}
	if cfg.Store.Retry.DrainTimeout == 0 {
		cfg.Store.Retry.DrainTimeout = 10 * time.Second
	}
	if cfg.Store.Retry.InitialInterval == 0 {
		cfg.Store.Retry.InitialInterval = 500 * time.Millisecond
	}
	if cfg.Store.Retry.MaxInterval == 0 {
		cfg.Store.Retry.MaxInterval = 30 * time.Second
	}
	if cfg.Store.Retry.MaxElapsedTime == 0 {
		cfg.Store.Retry.MaxElapsedTime = 30 * time.Minute
	}

	if cfg.Moderation.CrisisThreshold == 0 {
		cfg.Moderation.CrisisThreshold = 75
	}
	if cfg.Moderation.ReviewThreshold == 0 {
		cfg.Moderation.ReviewThreshold = 40
	}
	if cfg.Moderation.RecencyWeight == 0 {
		cfg.Moderation.RecencyWeight = 0.3
	}
	if cfg.Moderation.RecencyWindow == 0 {
		cfg.Moderation.RecencyWindow = 15 * time.Minute
	}
	if cfg.Moderation.TrendWeight == 0 {
		cfg.Moderation.TrendWeight = 0.15
	}
	if cfg.Moderation.HistorySize == 0 {
		cfg.Moderation.HistorySize = 3
	}
	if cfg.Moderation.SessionTTL == 0 {
		cfg.Moderation.SessionTTL = 2 * time.Hour
	}
	if cfg.Moderation.MaxTextBytes == 0 {
		cfg.Moderation.MaxTextBytes = 32 * 1024
	}

	if cfg.Crisis.SLA == 0 {
		cfg.Crisis.SLA = 5 * time.Minute
	}
	if cfg.Crisis.Cooldown == 0 {
		cfg.Crisis.Cooldown = 30 * time.Minute
	}
	if cfg.Crisis.MonitorSpec == "" {
		cfg.Crisis.MonitorSpec = "@every 15s"
	}
	if cfg.Crisis.MaxAttempts == 0 {
		cfg.Crisis.MaxAttempts = 3
	}
	if cfg.Crisis.Feed.MaxConnections == 0 {
		cfg.Crisis.Feed.MaxConnections = 256
	}
	if cfg.Crisis.Feed.Buffer == 0 {
		cfg.Crisis.Feed.Buffer = 32
	}
	if cfg.Crisis.Feed.PingPeriod == 0 {
		cfg.Crisis.Feed.PingPeriod = 30 * time.Second
	}
	if cfg.Crisis.Feed.PongWait == 0 {
		cfg.Crisis.Feed.PongWait = 45 * time.Second
	}

	if cfg.Feedback.Window == 0 {
		cfg.Feedback.Window = 7 * 24 * time.Hour
	}
	if cfg.Feedback.MinSamples == 0 {
		cfg.Feedback.MinSamples = 10
	}
	if cfg.Feedback.FalsePositiveCeiling == 0 {
		cfg.Feedback.FalsePositiveCeiling = 0.5
	}
	if cfg.Feedback.ReductionStep == 0 {
		cfg.Feedback.ReductionStep = 0.2
	}
	if cfg.Feedback.CrisisWeightFloor == 0 {
		cfg.Feedback.CrisisWeightFloor = 50
	}
	if cfg.Feedback.QueueKey == "" {
		cfg.Feedback.QueueKey = "careguard:verdicts"
	}
	if cfg.Feedback.PopTimeout == 0 {
		cfg.Feedback.PopTimeout = 5 * time.Second
	}

	if cfg.Dictionary.RefreshSpec == "" {
		cfg.Dictionary.RefreshSpec = "@every 30s"
	}

	if cfg.Audit.WALDir == "" {
		cfg.Audit.WALDir = "data/audit"
	}
	if cfg.Audit.QueueSize == 0 {
		cfg.Audit.QueueSize = 4096
	}
	if cfg.Audit.Workers == 0 {
		cfg.Audit.Workers = 2
	}
	if cfg.Audit.CompactSpec == "" {
		cfg.Audit.CompactSpec = "@every 5m"
	}
}

func GetConfig() *Config {
	return &globalConfig
}
