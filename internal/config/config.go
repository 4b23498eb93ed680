package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server struct {
		Port        int      `yaml:"port" envconfig:"PORT"`
		CertFile    string   `yaml:"cert_file" envconfig:"CERT_FILE"`
		KeyFile     string   `yaml:"key_file" envconfig:"KEY_FILE"`
		EnableTLS   bool     `yaml:"enable_tls" envconfig:"ENABLE_TLS"`
		CORSOrigins []string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
	} `yaml:"server" envconfig:"SERVER"`

	Database struct {
		Driver          string        `yaml:"driver" envconfig:"DRIVER"` // mysql | postgres
		DSN             string        `yaml:"dsn" envconfig:"DSN"`
		MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
		MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" envconfig:"SLOW_THRESHOLD"`
	} `yaml:"database" envconfig:"DATABASE"`

	Redis struct {
		Host     string `yaml:"host" envconfig:"HOST"`
		Port     int    `yaml:"port" envconfig:"PORT"`
		Password string `yaml:"password" envconfig:"PASSWORD"`
		DB       int    `yaml:"db" envconfig:"DB"`
		Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	} `yaml:"redis" envconfig:"REDIS"`

	Session struct {
		CookieName string        `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
		TTL        time.Duration `yaml:"ttl" envconfig:"TTL"`
		CacheTTL   time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
		Secure     bool          `yaml:"secure" envconfig:"SECURE"`
	} `yaml:"session" envconfig:"SESSION"`

	Auth struct {
		AdminEmails []string `yaml:"admin_emails" envconfig:"ADMIN_EMAILS"`
	} `yaml:"auth" envconfig:"AUTH"`

	Realtime struct {
		TicketSecret string        `yaml:"ticket_secret" envconfig:"TICKET_SECRET"`
		TicketTTL    time.Duration `yaml:"ticket_ttl" envconfig:"TICKET_TTL"`
		InstanceID   string        `yaml:"instance_id" envconfig:"INSTANCE_ID"`
		Channel      string        `yaml:"channel" envconfig:"CHANNEL"`
		PresenceTTL  time.Duration `yaml:"presence_ttl" envconfig:"PRESENCE_TTL"`

		secretGenerated bool
	} `yaml:"realtime" envconfig:"REALTIME"`

	Catalog struct {
		APIKey         string        `yaml:"api_key" envconfig:"API_KEY"`
		BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL"`
		List           string        `yaml:"list" envconfig:"LIST"` // popular | top_rated | now_playing | upcoming
		SyncEnabled    bool          `yaml:"sync_enabled" envconfig:"SYNC_ENABLED"`
		SyncInterval   time.Duration `yaml:"sync_interval" envconfig:"SYNC_INTERVAL"`
		SyncPages      int           `yaml:"sync_pages" envconfig:"SYNC_PAGES"`
		PageDelay      time.Duration `yaml:"page_delay" envconfig:"PAGE_DELAY"`
		PageTimeout    time.Duration `yaml:"page_timeout" envconfig:"PAGE_TIMEOUT"`
		RequestsPerSec float64       `yaml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC"`
		BreakerTimeout time.Duration `yaml:"breaker_timeout" envconfig:"BREAKER_TIMEOUT"`
	} `yaml:"catalog" envconfig:"CATALOG"`

	Workflow struct {
		AllowDuplicateSuggestions *bool `yaml:"allow_duplicate_suggestions" envconfig:"ALLOW_DUPLICATE_SUGGESTIONS"`
		DefaultDesireRating       int   `yaml:"default_desire_rating" envconfig:"DEFAULT_DESIRE_RATING"`
	} `yaml:"workflow" envconfig:"WORKFLOW"`

	Identity struct {
		AllowInternalFallback *bool `yaml:"allow_internal_fallback" envconfig:"ALLOW_INTERNAL_FALLBACK"`
	} `yaml:"identity" envconfig:"IDENTITY"`

	MQ struct {
		URL      string `yaml:"url" envconfig:"URL"`
		Exchange string `yaml:"exchange" envconfig:"EXCHANGE"`
	} `yaml:"mq" envconfig:"MQ"`

	Log struct {
		Level       string `yaml:"level" envconfig:"LEVEL"`
		Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
	} `yaml:"log" envconfig:"LOG"`
}

// EnvPrefix 环境变量前缀，例如 MOVIENIGHT_DATABASE_DSN
const EnvPrefix = "MOVIENIGHT"

// DevTicketSecret 开发模式下的默认票据密钥，生产环境禁止使用
const DevTicketSecret = "default_secret_key_for_development"

// Load 读取配置：.env -> config.yaml -> MOVIENIGHT_* 环境变量 -> 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := &Config{}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 配置文件不存在，完全依赖环境变量和默认值
	default:
		return nil, fmt.Errorf("打开配置文件 %s 失败: %w", path, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults 为未设置的字段填充默认值
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000"}
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.DSN == "" && c.Database.Driver == "mysql" {
		c.Database.DSN = "root:123456@tcp(127.0.0.1:3306)/movienight?charset=utf8mb4&parseTime=True&loc=Local"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.SlowThreshold == 0 {
		c.Database.SlowThreshold = time.Second
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "mn_session"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * 24 * time.Hour
	}
	if c.Session.CacheTTL <= 0 {
		c.Session.CacheTTL = 10 * time.Minute
	}

	if c.Realtime.TicketSecret == "" {
		if c.Log.Development {
			c.Realtime.TicketSecret = DevTicketSecret
		} else {
			// 单实例可用，多实例之间票据无法互认
			c.Realtime.TicketSecret = rand.Text()
			c.Realtime.secretGenerated = true
		}
	}
	if c.Realtime.TicketTTL <= 0 {
		c.Realtime.TicketTTL = time.Minute
	}
	if c.Realtime.InstanceID == "" {
		host, _ := os.Hostname()
		c.Realtime.InstanceID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if c.Realtime.Channel == "" {
		c.Realtime.Channel = "movienight:realtime"
	}
	if c.Realtime.PresenceTTL <= 0 {
		c.Realtime.PresenceTTL = 5 * time.Minute
	}

	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = "https://api.themoviedb.org/3"
	}
	if c.Catalog.List == "" {
		c.Catalog.List = "popular"
	}
	if c.Catalog.SyncInterval <= 0 {
		c.Catalog.SyncInterval = 6 * time.Hour
	}
	if c.Catalog.SyncPages <= 0 {
		c.Catalog.SyncPages = 5
	}
	if c.Catalog.PageDelay < 0 {
		c.Catalog.PageDelay = 0
	} else if c.Catalog.PageDelay == 0 {
		c.Catalog.PageDelay = 250 * time.Millisecond
	}
	if c.Catalog.PageTimeout <= 0 {
		c.Catalog.PageTimeout = 10 * time.Second
	}
	if c.Catalog.RequestsPerSec <= 0 {
		c.Catalog.RequestsPerSec = 20
	}
	if c.Catalog.BreakerTimeout <= 0 {
		c.Catalog.BreakerTimeout = time.Minute
	}

	if c.Workflow.AllowDuplicateSuggestions == nil {
		allow := true
		c.Workflow.AllowDuplicateSuggestions = &allow
	}
	if c.Workflow.DefaultDesireRating == 0 {
		c.Workflow.DefaultDesireRating = 5
	}

	if c.Identity.AllowInternalFallback == nil {
		allow := true
		c.Identity.AllowInternalFallback = &allow
	}

	if c.MQ.Exchange == "" {
		c.MQ.Exchange = "movienight.notifications"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate 校验配置的取值范围
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn 不能为空")
	}
	if c.Workflow.DefaultDesireRating < 1 || c.Workflow.DefaultDesireRating > 10 {
		return fmt.Errorf("workflow.default_desire_rating 必须在 1-10 之间: %d", c.Workflow.DefaultDesireRating)
	}
	if c.Realtime.TicketSecret == "" {
		return errors.New("realtime.ticket_secret 不能为空")
	}
	if !c.Log.Development && c.Realtime.TicketSecret == DevTicketSecret {
		return errors.New("生产环境不能使用默认的 realtime.ticket_secret")
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return errors.New("启用TLS时必须配置 cert_file 和 key_file")
	}
	return nil
}

// RedisAddr Redis 地址
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// AllowDuplicateSuggestions 是否允许重复推荐同一部电影
func (c *Config) AllowDuplicateSuggestions() bool {
	return c.Workflow.AllowDuplicateSuggestions == nil || *c.Workflow.AllowDuplicateSuggestions
}

// AllowInternalIDFallback 身份映射是否允许回退到内部ID
func (c *Config) AllowInternalIDFallback() bool {
	return c.Identity.AllowInternalFallback == nil || *c.Identity.AllowInternalFallback
}

// TicketSecretGenerated 票据密钥是否为启动时随机生成
func (c *Config) TicketSecretGenerated() bool {
	return c.Realtime.secretGenerated
}
