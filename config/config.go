package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Arcade   ArcadeConfig   `mapstructure:"arcade"`
	Security SecurityConfig `mapstructure:"security"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// LogConfig controls the optional rotating log file. An empty File logs
// to stderr only.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

// ArcadeConfig holds the session economy and battle tuning.
type ArcadeConfig struct {
	SessionCost    int64         `mapstructure:"session_cost"`
	BattleRounds   int           `mapstructure:"battle_rounds"`
	CatchRounds    int           `mapstructure:"catch_rounds"`
	BattlePerEntry int           `mapstructure:"battle_per_entry"`
	CatchPerEntry  int           `mapstructure:"catch_per_entry"`
	KeepCost       int64         `mapstructure:"keep_cost"`
	RewardCost     int64         `mapstructure:"reward_cost"`
	BallsPerRound  int           `mapstructure:"balls_per_round"`
	TrainerPower   float64       `mapstructure:"trainer_power"` // HP and attack multiplier
	TrainerGuard   float64       `mapstructure:"trainer_guard"` // defense multiplier
	MaxCycles      int           `mapstructure:"max_cycles"`
	CatalogPath    string        `mapstructure:"catalog_path"`
	StarterYen     int64         `mapstructure:"starter_yen"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	PromptTimeout  time.Duration `mapstructure:"prompt_timeout"` // console prompts fall back to defaults after this
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"` // websocket origins; empty allows all
}

type JobsConfig struct {
	RankingRefresh time.Duration `mapstructure:"ranking_refresh"`
	RankingSize    int           `mapstructure:"ranking_size"`
	HallSweep      time.Duration `mapstructure:"hall_sweep"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/gaole.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("arcade.session_cost", 100)
	v.SetDefault("arcade.battle_rounds", 3)
	v.SetDefault("arcade.catch_rounds", 9)
	v.SetDefault("arcade.battle_per_entry", 3)
	v.SetDefault("arcade.catch_per_entry", 9)
	v.SetDefault("arcade.keep_cost", 100)
	v.SetDefault("arcade.reward_cost", 100)
	v.SetDefault("arcade.balls_per_round", 2)
	v.SetDefault("arcade.trainer_power", 1.4)
	v.SetDefault("arcade.trainer_guard", 1.3)
	v.SetDefault("arcade.max_cycles", 1000)
	v.SetDefault("arcade.catalog_path", "./data/species.json")
	v.SetDefault("arcade.starter_yen", 0)
	v.SetDefault("arcade.idle_timeout", "30m")
	v.SetDefault("arcade.prompt_timeout", "60s")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("jobs.ranking_refresh", "1m")
	v.SetDefault("jobs.ranking_size", 50)
	v.SetDefault("jobs.hall_sweep", "1m")
}
