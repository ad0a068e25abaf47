package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // HTTP服务配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	Postgres PostgresConfig `mapstructure:"postgres"` // PostgreSQL配置（postgres后端与同步历史共用）
	Store    StoreConfig    `mapstructure:"store"`    // 远端表存储配置
	Sync     SyncConfig     `mapstructure:"sync"`     // 同步流程配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN，为空则不连接数据库
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// StoreConfig 远端表存储配置
type StoreConfig struct {
	Backend   string         `mapstructure:"backend"`    // airtable/postgres/memory
	BatchSize int            `mapstructure:"batch_size"` // postgres/memory 后端单批写入上限
	Airtable  AirtableConfig `mapstructure:"airtable"`
	Tables    TableConfig    `mapstructure:"tables"`
}

// AirtableConfig Airtable REST API 配置
type AirtableConfig struct {
	BaseURL          string  `mapstructure:"base_url"`          // API基础地址
	APIKey           string  `mapstructure:"api_key"`           // 个人访问令牌
	BaseID           string  `mapstructure:"base_id"`           // 目标 base
	Timeout          int     `mapstructure:"timeout"`           // 请求超时（秒）
	RetryCount       int     `mapstructure:"retry_count"`       // 429/5xx 重试次数
	RetryBackoffMs   int     `mapstructure:"retry_backoff_ms"`  // 首次重试等待（毫秒），之后翻倍
	RateLimit        float64 `mapstructure:"rate_limit"`        // 每秒请求数（Airtable 限制 5/s）
	Proxy            string  `mapstructure:"proxy"`             // 代理地址
	BreakerFailures  uint32  `mapstructure:"breaker_failures"`  // 连续失败多少次后熔断
	BreakerTimeoutMs int     `mapstructure:"breaker_timeout_ms"` // 熔断后多久进入半开
}

// TableConfig 远端表名与字段名
type TableConfig struct {
	Games       string `mapstructure:"games"`
	Teams       string `mapstructure:"teams"`
	Locations   string `mapstructure:"locations"`
	Officials   string `mapstructure:"officials"`
	NameField   string `mapstructure:"name_field"`    // 引用实体的名称字段
	GameIDField string `mapstructure:"game_id_field"` // 比赛表的业务主键字段
}

// SyncConfig 同步流程配置
type SyncConfig struct {
	SelfName       string       `mapstructure:"self_name"`        // 本人（裁判）姓名，用于判定执裁位置
	SelfID         string       `mapstructure:"self_id"`          // 本人在 Officials 表中的已知记录ID
	UTCOffsetHours int          `mapstructure:"utc_offset_hours"` // 赛程时间所在的固定时区偏移（不处理夏令时）
	Concurrency    int          `mapstructure:"concurrency"`      // 行级并发数
	StrictLookup   bool         `mapstructure:"strict_lookup"`    // 查找命中多条记录时是否视为错误
	LevelPrefix    string       `mapstructure:"level_prefix"`     // 级别代码前缀，如 "U"
	LabelWidth     int          `mapstructure:"label_width"`      // 裁判姓名前缀标签宽度
	Placeholders   []string     `mapstructure:"placeholders"`     // 视为“无人”的占位值
	Columns        ColumnConfig `mapstructure:"columns"`
}

// ColumnConfig 源表格列名
type ColumnConfig struct {
	GameID    string   `mapstructure:"game_id"`
	DateTime  string   `mapstructure:"date_time"`
	Location  string   `mapstructure:"location"`
	Field     string   `mapstructure:"field"`
	Level     string   `mapstructure:"level"`
	Home      string   `mapstructure:"home"`
	Away      string   `mapstructure:"away"`
	Position  string   `mapstructure:"position"`
	Officials []string `mapstructure:"officials"` // 依次对应 Center/AR1/AR2
}

// ErrInvalidConfig 配置缺失或取值非法
var ErrInvalidConfig = errors.New("配置无效")

// LoadConfig 加载配置文件（<dir>/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig(dir string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	setDefaults(v)

	// 2. 读取 config.yaml；文件不存在时全部使用默认值
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "./config"
	}
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("store.backend", "airtable")
	v.SetDefault("store.batch_size", 10)
	v.SetDefault("store.airtable.base_url", "https://api.airtable.com")
	v.SetDefault("store.airtable.timeout", 30)
	v.SetDefault("store.airtable.retry_count", 3)
	v.SetDefault("store.airtable.retry_backoff_ms", 500)
	v.SetDefault("store.airtable.rate_limit", 5)
	v.SetDefault("store.airtable.breaker_failures", 5)
	v.SetDefault("store.airtable.breaker_timeout_ms", 30000)
	v.SetDefault("store.tables.games", "Games")
	v.SetDefault("store.tables.teams", "Teams")
	v.SetDefault("store.tables.locations", "Locations")
	v.SetDefault("store.tables.officials", "Officials")
	v.SetDefault("store.tables.name_field", "Name")
	v.SetDefault("store.tables.game_id_field", "Game id")

	v.SetDefault("sync.utc_offset_hours", -6)
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.strict_lookup", true)
	v.SetDefault("sync.level_prefix", "U")
	v.SetDefault("sync.label_width", 4)
	v.SetDefault("sync.placeholders", []string{"", "TBD", "Unknown"})
	v.SetDefault("sync.columns.game_id", "Game #")
	v.SetDefault("sync.columns.date_time", "Date Time")
	v.SetDefault("sync.columns.location", "Location")
	v.SetDefault("sync.columns.field", "Field")
	v.SetDefault("sync.columns.level", "Level")
	v.SetDefault("sync.columns.home", "Home")
	v.SetDefault("sync.columns.away", "Away")
	v.SetDefault("sync.columns.position", "Position")
	v.SetDefault("sync.columns.officials", []string{"Official 1", "Official 2", "Official 3"})
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("AIRTABLE_API_KEY"); v != "" {
		cfg.Store.Airtable.APIKey = v
	}
	if v := os.Getenv("AIRTABLE_BASE_ID"); v != "" {
		cfg.Store.Airtable.BaseID = v
	}
	if v := os.Getenv("AIRTABLE_PROXY"); v != "" {
		cfg.Store.Airtable.Proxy = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("SELF_OFFICIAL_ID"); v != "" {
		cfg.Sync.SelfID = v
	}
}

// Validate 校验启动同步前必须具备的配置项，错误均为致命错误
func (c *Config) Validate() error {
	var problems []string
	switch c.Store.Backend {
	case "airtable":
		if c.Store.Airtable.APIKey == "" {
			problems = append(problems, "store.airtable.api_key 为空")
		}
		if c.Store.Airtable.BaseID == "" {
			problems = append(problems, "store.airtable.base_id 为空")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			problems = append(problems, "postgres.dsn 为空")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("未知的存储后端: %q", c.Store.Backend))
	}
	if c.Sync.Columns.GameID == "" {
		problems = append(problems, "sync.columns.game_id 为空")
	}
	if c.Sync.UTCOffsetHours < -12 || c.Sync.UTCOffsetHours > 14 {
		problems = append(problems, fmt.Sprintf("sync.utc_offset_hours 超出范围: %d", c.Sync.UTCOffsetHours))
	}
	if c.Sync.SelfID != "" && c.Sync.SelfName == "" {
		problems = append(problems, "配置了 sync.self_id 但缺少 sync.self_name")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Location 返回赛程时间使用的固定偏移时区
func (s *SyncConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", s.UTCOffsetHours), s.UTCOffsetHours*3600)
}
