package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	_ "time/tzdata"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`
	Run        RunConfig        `yaml:"run"`
	Pool       PoolConfig       `yaml:"pool"`
	Cache      CacheConfig      `yaml:"cache"`
	Sources    SourcesConfig    `yaml:"sources"`
	Cascade    CascadeConfig    `yaml:"cascade"`
	Screener   ScreenerConfig   `yaml:"screener"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
}

type RunConfig struct {
	Mode         string        `yaml:"mode" default:"once" validate:"oneof=once serve"`
	Timeout      time.Duration `yaml:"timeout" default:"2m"`
	LookbackDays int           `yaml:"lookback_days" default:"30" validate:"gte=7,lte=400"`
	Location     string        `yaml:"location" default:"Asia/Seoul"`
	Universe     string        `yaml:"universe" default:"config/universe.yaml" validate:"required"`
	// AsOf pins the as-of date (YYYYMMDD); empty means today in Location.
	AsOf                string         `yaml:"as_of"`
	ReferenceCandidates []string       `yaml:"reference_candidates"`
	Windows             []WindowConfig `yaml:"windows" validate:"dive"`
}

type WindowConfig struct {
	Name         string `yaml:"name" validate:"required"`
	CurrentStart int    `yaml:"current_start" validate:"gte=0"`
	CurrentEnd   int    `yaml:"current_end" validate:"gte=0"`
	Baseline     int    `yaml:"baseline" validate:"gte=0"`
}

type PoolConfig struct {
	Workers       int     `yaml:"workers" default:"8" validate:"gte=1,lte=64"`
	RatePerSecond float64 `yaml:"rate_per_second" default:"20" validate:"gt=0"`
	Burst         int     `yaml:"burst" default:"5" validate:"gte=1"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory layered"`
	TTL           time.Duration `yaml:"ttl" default:"10m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"5000" validate:"gte=1"`
}

type HTTPSourceConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" default:"10s"`
	UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; sectorpulse/1.0)"`
	MinDelay  time.Duration `yaml:"min_delay"`
}

type SourcesConfig struct {
	Yahoo struct {
		HTTPSourceConfig `yaml:",inline"`
	} `yaml:"yahoo"`
	Naver struct {
		HTTPSourceConfig `yaml:",inline"`
	} `yaml:"naver"`
	KRX struct {
		HTTPSourceConfig `yaml:",inline"`
		Markets          []string `yaml:"markets"`
	} `yaml:"krx"`
	Warehouse struct {
		Enabled bool   `yaml:"enabled"`
		Table   string `yaml:"table" default:"daily_ohlcv"`
	} `yaml:"warehouse"`
	News struct {
		Enabled          bool `yaml:"enabled"`
		HTTPSourceConfig `yaml:",inline"`
		MaxItems         int `yaml:"max_items" default:"3" validate:"gte=1"`
	} `yaml:"news"`
}

type CascadeConfig struct {
	Series       []string `yaml:"series"`
	Flow         []string `yaml:"flow"`
	SnapshotTopN int      `yaml:"snapshot_top_n" default:"50" validate:"gte=1"`
}

type ScreenerConfig struct {
	MinRatio float64 `yaml:"min_ratio" default:"0.5" validate:"gte=0"`
	Limit    int     `yaml:"limit" default:"30" validate:"gte=1,lte=500"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"2m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	ReportTopic  string   `yaml:"report_topic" default:"sectorpulse.reports"`
	LogTopic     string   `yaml:"log_topic" default:"sectorpulse.logs"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		Linger       time.Duration `yaml:"linger" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"market"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"sectorpulse"`
}

var (
	DefaultSeriesOrder         = []string{"yahoo", "krx", "warehouse"}
	DefaultFlowOrder           = []string{"naver", "krx"}
	DefaultMarkets             = []string{"KOSPI", "KOSDAQ"}
	DefaultReferenceCandidates = []string{"005930", "000660", "035420"}
	DefaultWindows             = []WindowConfig{
		{Name: "today", CurrentStart: 0, CurrentEnd: 0, Baseline: 1},
		{Name: "yesterday", CurrentStart: 1, CurrentEnd: 1, Baseline: 2},
		{Name: "week", CurrentStart: 4, CurrentEnd: 0, Baseline: 5},
	}
)

const (
	DefaultYahooURL = "https://query1.finance.yahoo.com"
	DefaultNaverURL = "https://finance.naver.com"
	DefaultKRXURL   = "http://localhost:8091/krx"
	DefaultNewsURL  = "https://news.google.com/rss/search"
)

var knownSources = map[string]bool{"yahoo": true, "naver": true, "krx": true, "warehouse": true}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&c)

	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("SECTORPULSE_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SECTORPULSE_MODE"); v != "" {
		c.Run.Mode = v
	}
	if v := os.Getenv("SECTORPULSE_UNIVERSE"); v != "" {
		c.Run.Universe = v
	}
	if v := os.Getenv("SECTORPULSE_AS_OF"); v != "" {
		c.Run.AsOf = v
	}
	if v := os.Getenv("SECTORPULSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SECTORPULSE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Cache.Backend = "layered"
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.Sources.Warehouse.Enabled = true
	}
}

func (c *Config) finalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	c.fillSlices()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func (c *Config) fillSlices() {
	if len(c.Run.Windows) == 0 {
		c.Run.Windows = append([]WindowConfig(nil), DefaultWindows...)
	}
	if len(c.Run.ReferenceCandidates) == 0 {
		c.Run.ReferenceCandidates = append([]string(nil), DefaultReferenceCandidates...)
	}
	if len(c.Cascade.Series) == 0 {
		c.Cascade.Series = append([]string(nil), DefaultSeriesOrder...)
	}
	if len(c.Cascade.Flow) == 0 {
		c.Cascade.Flow = append([]string(nil), DefaultFlowOrder...)
	}
	if len(c.Sources.KRX.Markets) == 0 {
		c.Sources.KRX.Markets = append([]string(nil), DefaultMarkets...)
	}
	fillURL(&c.Sources.Yahoo.BaseURL, DefaultYahooURL)
	fillURL(&c.Sources.Naver.BaseURL, DefaultNaverURL)
	fillURL(&c.Sources.KRX.BaseURL, DefaultKRXURL)
	fillURL(&c.Sources.News.BaseURL, DefaultNewsURL)
	if c.Sources.Naver.MinDelay <= 0 {
		c.Sources.Naver.MinDelay = 100 * time.Millisecond
	}
}

func fillURL(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	for _, name := range c.Cascade.Series {
		if !knownSources[name] || name == "naver" {
			return fmt.Errorf("cascade.series: unsupported source %q", name)
		}
	}
	for _, name := range c.Cascade.Flow {
		if name != "naver" && name != "krx" {
			return fmt.Errorf("cascade.flow: unsupported source %q", name)
		}
	}
	seen := make(map[string]bool, len(c.Run.Windows))
	for _, w := range c.Run.Windows {
		if seen[w.Name] {
			return fmt.Errorf("run.windows: duplicate window %q", w.Name)
		}
		seen[w.Name] = true
		if w.CurrentStart < w.CurrentEnd {
			return fmt.Errorf("run.windows[%s]: current_start must be >= current_end", w.Name)
		}
		if w.Baseline <= w.CurrentStart {
			return fmt.Errorf("run.windows[%s]: baseline must be older than current_start", w.Name)
		}
	}
	if c.Run.AsOf != "" {
		if _, err := time.Parse("20060102", c.Run.AsOf); err != nil {
			return fmt.Errorf("run.as_of must be YYYYMMDD: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Run.Location); err != nil {
		return fmt.Errorf("run.location: %w", err)
	}
	return nil
}

// Location returns the market time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Run.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}
