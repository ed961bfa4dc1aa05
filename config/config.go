package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" validate:"min=0,max=65535"`
		Addr string `yaml:"-"` // 不从配置文件读取，而是在加载后计算

		AllowedOrigins  []string `yaml:"allowed_origins"`   // CORS 允许的来源
		ShutdownTimeout int      `yaml:"shutdown_timeout"` // 优雅退出等待秒数
	} `yaml:"server"`
	SiliconFlow struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	} `yaml:"siliconflow"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	DB struct {
		Driver          string `yaml:"driver" validate:"oneof=mysql postgres"` // mysql 或 postgres
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		ParseTime       bool   `yaml:"parse_time"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		PostgresURL     string `yaml:"postgres_url"`      // driver=postgres 时使用
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
	LLM struct {
		Provider          string  `yaml:"provider" validate:"oneof=siliconflow gemini"`
		TimeoutSec        int     `yaml:"timeout_sec" validate:"min=1"`          // 单次模型调用超时
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`   // 模型调用限速
		Burst             int     `yaml:"burst" validate:"min=1"`                // 限速突发
		BreakerFailures   uint32  `yaml:"breaker_failures" validate:"min=1"`     // 连续失败多少次后熔断
		BreakerTimeoutSec int     `yaml:"breaker_timeout_sec" validate:"min=1"` // 熔断后多久进入半开
	} `yaml:"llm"`
	Cluster struct {
		ChunkSize    int    `yaml:"chunk_size" validate:"min=1"`
		TopKeywords  int    `yaml:"top_keywords" validate:"min=1"`
		SampleTitles int    `yaml:"sample_titles" validate:"min=1"`
		MinClusters  int    `yaml:"min_clusters" validate:"min=1"`
		MinVideos    int    `yaml:"min_videos" validate:"min=1"`
		Protocol     string `yaml:"protocol" validate:"oneof=related_videos video_count json"`
	} `yaml:"cluster"`
	Search struct {
		Threshold               float64 `yaml:"threshold" validate:"gte=0,lte=1"`
		FallbackTopN            int     `yaml:"fallback_top_n" validate:"min=1"`
		CandidateLimit          int     `yaml:"candidate_limit" validate:"min=1"`
		FetchConcurrency        int     `yaml:"fetch_concurrency" validate:"min=1"`
		RawPoolWithoutReference bool    `yaml:"raw_pool_without_reference"` // 无参考项时直接返回原始候选池
	} `yaml:"search"`
	Scheduler struct {
		Enabled     bool   `yaml:"enabled"`
		Spec        string `yaml:"spec"`        // cron 表达式（含秒）
		Concurrency int    `yaml:"concurrency"` // 批量聚类并发数
		BatchLimit  int    `yaml:"batch_limit"` // 每轮最多处理的用户数
	} `yaml:"scheduler"`
}

func Load() *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	configFile := getenv("CONFIG_FILE", "config.yaml")

	var cfg Config

	// 尝试从config.yaml文件加载配置
	if data, err := os.ReadFile(configFile); err == nil {
		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			log.Printf("Error loading %s: %v, falling back to environment variables", configFile, err)
			return loadFromEnv()
		}
		log.Printf("Loading configuration from %s", configFile)

		applyEnvOverrides(&cfg)
		finalize(&cfg)
		return &cfg
	}

	// 如果config.yaml不存在，则完全从环境变量加载配置
	return loadFromEnv()
}

func loadFromEnv() *Config {
	var cfg Config

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	cfg.DB.Driver = os.Getenv("DB_DRIVER")
	cfg.DB.DSN = os.Getenv("DB_DSN")
	cfg.SiliconFlow.BaseURL = os.Getenv("SILICONFLOW_BASE_URL")
	cfg.SiliconFlow.Model = os.Getenv("SILICONFLOW_MODEL")
	cfg.LLM.Provider = os.Getenv("LLM_PROVIDER")

	applyEnvOverrides(&cfg)
	finalize(&cfg)

	log.Println("配置从环境变量加载，部分配置可能缺失")
	return &cfg
}

// applyEnvOverrides 从环境变量中加载敏感信息
func applyEnvOverrides(cfg *Config) {
	if envUsername := os.Getenv("DATABASE_USERNAME"); envUsername != "" {
		cfg.DB.Username = envUsername
	}
	if envPassword := os.Getenv("DATABASE_PASSWORD"); envPassword != "" {
		cfg.DB.Password = envPassword
	}
	if envURL := os.Getenv("POSTGRES_URL"); envURL != "" {
		cfg.DB.PostgresURL = envURL
	}
	if envAPIKey := os.Getenv("SILICONFLOW_API_KEY"); envAPIKey != "" {
		cfg.SiliconFlow.APIKey = envAPIKey
	}
	if envAPIKey := os.Getenv("GEMINI_API_KEY"); envAPIKey != "" {
		cfg.Gemini.APIKey = envAPIKey
	}
}

// finalize 计算派生字段并补齐默认值
func finalize(cfg *Config) {
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)
	applyDefaults(cfg)

	if cfg.DB.Driver == "mysql" && cfg.DB.DSN == "" && cfg.DB.Host != "" {
		parseTime := ""
		if cfg.DB.ParseTime {
			parseTime = "&parseTime=true"
		}
		cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s%s",
			cfg.DB.Username,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Database,
			cfg.DB.Charset,
			parseTime)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 15
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "mysql"
	}
	if cfg.DB.Charset == "" {
		cfg.DB.Charset = "utf8mb4"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "siliconflow"
	}
	if cfg.LLM.TimeoutSec <= 0 {
		cfg.LLM.TimeoutSec = 90
	}
	if cfg.LLM.RequestsPerSecond <= 0 {
		cfg.LLM.RequestsPerSecond = 2
	}
	if cfg.LLM.Burst <= 0 {
		cfg.LLM.Burst = 4
	}
	if cfg.LLM.BreakerFailures == 0 {
		cfg.LLM.BreakerFailures = 5
	}
	if cfg.LLM.BreakerTimeoutSec <= 0 {
		cfg.LLM.BreakerTimeoutSec = 60
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Cluster.ChunkSize <= 0 {
		cfg.Cluster.ChunkSize = 20
	}
	if cfg.Cluster.TopKeywords <= 0 {
		cfg.Cluster.TopKeywords = 10
	}
	if cfg.Cluster.SampleTitles <= 0 {
		cfg.Cluster.SampleTitles = 5
	}
	if cfg.Cluster.MinClusters <= 0 {
		cfg.Cluster.MinClusters = 5
	}
	if cfg.Cluster.MinVideos <= 0 {
		cfg.Cluster.MinVideos = 3
	}
	if cfg.Cluster.Protocol == "" {
		cfg.Cluster.Protocol = "related_videos"
	}
	if cfg.Search.Threshold == 0 {
		cfg.Search.Threshold = 0.30
	}
	if cfg.Search.FallbackTopN <= 0 {
		cfg.Search.FallbackTopN = 3
	}
	if cfg.Search.CandidateLimit <= 0 {
		cfg.Search.CandidateLimit = 50
	}
	if cfg.Search.FetchConcurrency <= 0 {
		cfg.Search.FetchConcurrency = 4
	}
	if cfg.Scheduler.Spec == "" {
		cfg.Scheduler.Spec = "0 0 3 * * *" // 每天凌晨3点
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 4
	}
	if cfg.Scheduler.BatchLimit <= 0 {
		cfg.Scheduler.BatchLimit = 200
	}
}

// Default 返回全部使用默认值的配置，主要用于测试
func Default() *Config {
	var cfg Config
	finalize(&cfg)
	return &cfg
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	switch c.LLM.Provider {
	case "siliconflow":
		if c.SiliconFlow.BaseURL == "" {
			return fmt.Errorf("siliconflow.base_url is required when llm.provider=siliconflow")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
		}
	}
	if c.Cluster.Protocol == "json" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("cluster.protocol=json requires llm.provider=gemini")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
