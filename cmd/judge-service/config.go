package main

import (
	"fmt"
	"os"
	"time"

	"algojudge/internal/common/cache"
	"algojudge/internal/common/db"
	"algojudge/internal/common/mq"
	"algojudge/internal/common/storage"
	"algojudge/internal/submission/executor"
	"algojudge/internal/submission/service"
	"algojudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// QueueConfig holds topic and consumer settings on top of the broker.
type QueueConfig struct {
	SubmissionTopic string        `yaml:"submissionTopic"`
	StatusTopic     string        `yaml:"statusTopic"`
	ConsumerGroup   string        `yaml:"consumerGroup"`
	Concurrency     int           `yaml:"concurrency"`
	MaxInFlight     int           `yaml:"maxInFlight"`
	MaxRetries      int           `yaml:"maxRetries"`
	RetryDelay      time.Duration `yaml:"retryDelay"`
	DeadLetterTopic string        `yaml:"deadLetterTopic"`
	MessageTTL      time.Duration `yaml:"messageTTL"`
}

func (q QueueConfig) subscribeOptions() mq.SubscribeOptions {
	opts := mq.SubscribeOptions{
		ConsumerGroup:   q.ConsumerGroup,
		Concurrency:     q.Concurrency,
		MaxRetries:      q.MaxRetries,
		RetryDelay:      q.RetryDelay,
		DeadLetterTopic: q.DeadLetterTopic,
		MessageTTL:      q.MessageTTL,
	}
	if q.MaxInFlight > 0 {
		opts.Limiter = mq.NewTokenLimiter(q.MaxInFlight)
	}
	opts.SetDefaults()
	return opts
}

// JudgeConfig holds judging and caching settings.
type JudgeConfig struct {
	WorkerID         string        `yaml:"workerID"`
	ExecutionTimeout time.Duration `yaml:"executionTimeout"`
	StatusTimeout    time.Duration `yaml:"statusTimeout"`
	StatusTTL        time.Duration `yaml:"statusTTL"`
	StatusEmptyTTL   time.Duration `yaml:"statusEmptyTTL"`
	QuestionTTL      time.Duration `yaml:"questionTTL"`
	QuestionEmptyTTL time.Duration `yaml:"questionEmptyTTL"`
	MaxCodeBytes     int           `yaml:"maxCodeBytes"`
	// ResultBucket keeps per-case detail; empty uses the MinIO bucket.
	ResultBucket    string        `yaml:"resultBucket"`
	JanitorInterval time.Duration `yaml:"janitorInterval"`
}

// AppConfig holds judge-service configuration.
type AppConfig struct {
	Server   ServerConfig           `yaml:"server"`
	Logger   logger.Config          `yaml:"logger"`
	Database db.MySQLConfig         `yaml:"database"`
	Redis    cache.RedisConfig      `yaml:"redis"`
	Kafka    mq.KafkaConfig         `yaml:"kafka"`
	Queue    QueueConfig            `yaml:"queue"`
	MinIO    storage.MinIOConfig    `yaml:"minio"`
	Engine   executor.CXEConfig     `yaml:"engine"`
	Run      service.RunGuardConfig `yaml:"run"`
	Judge    JudgeConfig            `yaml:"judge"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Engine.BaseURL == "" {
		return nil, fmt.Errorf("engine baseURL is required")
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Queue.SubmissionTopic == "" {
		cfg.Queue.SubmissionTopic = "judge.submissions"
	}
	if cfg.Queue.StatusTopic == "" {
		cfg.Queue.StatusTopic = "judge.status.final"
	}
	if cfg.Queue.ConsumerGroup == "" {
		cfg.Queue.ConsumerGroup = "algojudge-judge"
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 4
	}

	if cfg.Judge.WorkerID == "" {
		host, _ := os.Hostname()
		cfg.Judge.WorkerID = host
	}
	if cfg.Judge.ExecutionTimeout == 0 {
		cfg.Judge.ExecutionTimeout = 2 * time.Minute
	}
	if cfg.Judge.StatusTimeout == 0 {
		cfg.Judge.StatusTimeout = 2 * time.Second
	}
	if cfg.Judge.StatusTTL == 0 {
		cfg.Judge.StatusTTL = 24 * time.Hour
	}
	if cfg.Judge.StatusEmptyTTL == 0 {
		cfg.Judge.StatusEmptyTTL = 30 * time.Second
	}
	if cfg.Judge.QuestionTTL == 0 {
		cfg.Judge.QuestionTTL = 10 * time.Minute
	}
	if cfg.Judge.QuestionEmptyTTL == 0 {
		cfg.Judge.QuestionEmptyTTL = time.Minute
	}
	if cfg.Judge.ResultBucket == "" {
		cfg.Judge.ResultBucket = cfg.MinIO.Bucket
	}
	if cfg.Judge.JanitorInterval == 0 {
		cfg.Judge.JanitorInterval = 5 * time.Minute
	}

	cfg.Engine.ApplyDefaults()
	cfg.Run.ApplyDefaults()
	return &cfg, nil
}
