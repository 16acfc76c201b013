package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Manufacturing ManufacturingConfig `mapstructure:"manufacturing"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // sqlite 文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN 返回postgres连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr 为空表示未启用Redis
func (c RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ManufacturingConfig 生产设置
type ManufacturingConfig struct {
	BOMNamingSeries               string        `mapstructure:"bom_naming_series"`
	WorkOrderNamingSeries         string        `mapstructure:"work_order_naming_series"`
	JobCardNamingSeries           string        `mapstructure:"job_card_naming_series"`
	DefaultWIPWarehouse           string        `mapstructure:"default_wip_warehouse"`
	DefaultFinishedGoodsWarehouse string        `mapstructure:"default_finished_goods_warehouse"`
	Currency                      string        `mapstructure:"currency"`
	AllowOverproduction           bool          `mapstructure:"allow_overproduction"`
	OverproductionPercentage      float64       `mapstructure:"overproduction_percentage"`
	StatsCacheTTL                 time.Duration `mapstructure:"stats_cache_ttl"`
	DisplayLanguage               string        `mapstructure:"display_language"`
}

func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在，使用默认值和环境变量
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "nimo-mfg.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.issuer", "nimo-plm")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("manufacturing.bom_naming_series", "BOM-.YYYY.-")
	v.SetDefault("manufacturing.work_order_naming_series", "MFG-WO-.YYYY.-")
	v.SetDefault("manufacturing.job_card_naming_series", "MFG-JC-.YYYY.-")
	v.SetDefault("manufacturing.default_wip_warehouse", "Work In Progress")
	v.SetDefault("manufacturing.default_finished_goods_warehouse", "Finished Goods")
	v.SetDefault("manufacturing.currency", "SAR")
	v.SetDefault("manufacturing.allow_overproduction", false)
	v.SetDefault("manufacturing.overproduction_percentage", 0)
	v.SetDefault("manufacturing.stats_cache_ttl", 30*time.Second)
	v.SetDefault("manufacturing.display_language", "ar")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.path", "DB_PATH")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.issuer", "JWT_ISSUER")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")

	// Manufacturing
	v.BindEnv("manufacturing.currency", "MFG_CURRENCY")
	v.BindEnv("manufacturing.allow_overproduction", "MFG_ALLOW_OVERPRODUCTION")
	v.BindEnv("manufacturing.overproduction_percentage", "MFG_OVERPRODUCTION_PERCENTAGE")
	v.BindEnv("manufacturing.default_wip_warehouse", "MFG_DEFAULT_WIP_WAREHOUSE")
	v.BindEnv("manufacturing.default_finished_goods_warehouse", "MFG_DEFAULT_FG_WAREHOUSE")
	v.BindEnv("manufacturing.display_language", "MFG_DISPLAY_LANGUAGE")
	v.BindEnv("manufacturing.stats_cache_ttl", "MFG_STATS_CACHE_TTL")
}
