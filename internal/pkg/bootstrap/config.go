// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"bazaar/internal/pkg/logger"
)

// Config 汇总了所有服务共享的配置。
// 先读 YAML 文件（CONFIG_FILE，缺省 config.yaml），再用环境变量覆盖，
// 两者都缺失时使用内置的本地开发默认值。
type Config struct {
	App struct {
		Lock struct {
			TTLMs           int `yaml:"ttlMs"`           // 锁的自动过期时间
			RetryIntervalMs int `yaml:"retryIntervalMs"` // 抢锁失败后的休眠间隔
			WaitBudgetMs    int `yaml:"waitBudgetMs"`    // 抢锁阶段的总时间预算
		} `yaml:"lock"`
		Policy struct {
			Expression string `yaml:"expression"` // CEL 下单准入表达式
		} `yaml:"policy"`
		Kafka struct {
			OrderPlacedTopic string `yaml:"orderPlacedTopic"`
		} `yaml:"kafka"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Zookeeper struct {
			Servers          []string `yaml:"servers"`
			SessionTimeoutMs int      `yaml:"sessionTimeoutMs"`
		} `yaml:"zookeeper"`
		Lock struct {
			Backend string `yaml:"backend"` // redis | zookeeper
		} `yaml:"lock"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var (
	currentConfig *Config
	configOnce    sync.Once
)

// Init 加载全局配置。必须在 StartService 之前调用一次。
func Init() {
	configOnce.Do(func() {
		cfg := defaultConfig()

		path := getEnv("CONFIG_FILE", "config.yaml")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				logger.Logger.Fatal().Err(err).Str("path", path).Msg("invalid config file")
			}
			logger.Logger.Info().Str("path", path).Msg("config file loaded")
		case os.IsNotExist(err):
			logger.Logger.Warn().Str("path", path).Msg("config file not found, using defaults")
		default:
			logger.Logger.Fatal().Err(err).Str("path", path).Msg("failed to read config file")
		}

		applyEnvOverrides(cfg)
		currentConfig = cfg
	})
}

// GetCurrentConfig 返回已加载的全局配置。
func GetCurrentConfig() *Config {
	if currentConfig == nil {
		Init()
	}
	return currentConfig
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Lock.TTLMs = 5000
	cfg.App.Lock.RetryIntervalMs = 50
	cfg.App.Lock.WaitBudgetMs = 3000
	cfg.App.Policy.Expression = "product_count <= 20"
	cfg.App.Kafka.OrderPlacedTopic = "order-placed-topic"
	cfg.Infra.Mysql.DSN = "bazaar:bazaar@tcp(localhost:3306)/bazaar?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Infra.Zookeeper.SessionTimeoutMs = 5000
	cfg.Infra.Lock.Backend = "redis"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	return cfg
}

// applyEnvOverrides 允许部署环境用环境变量覆盖文件配置。
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("ZK_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v := os.Getenv("LOCK_BACKEND"); v != "" {
		cfg.Infra.Lock.Backend = v
	}
	if v := os.Getenv("PURCHASE_POLICY"); v != "" {
		cfg.App.Policy.Expression = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.Enabled = true
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
}

// getEnv 从环境变量中读取配置，带缺省值。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
