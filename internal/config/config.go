package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:",squash"`
	Server    Server    `mapstructure:",squash"`
	Database  Database  `mapstructure:",squash"`
	Ingest    Ingest    `mapstructure:",squash"`
	Train     Train     `mapstructure:",squash"`
	Dashboard Dashboard `mapstructure:",squash"`
	Retrain   Retrain   `mapstructure:",squash"`
	Auth      Auth      `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type Ingest struct {
	FilePath string `mapstructure:"ingest_file_path"`
	RawTable string `mapstructure:"ingest_raw_table"`
}

type Train struct {
	CleanedTable  string `mapstructure:"train_cleaned_table"`
	ModelPath     string `mapstructure:"train_model_path"`
	MinDate       string `mapstructure:"train_min_date"`
	MaxDate       string `mapstructure:"train_max_date"`
	MaxIterations int    `mapstructure:"train_max_iterations"`
}

type Dashboard struct {
	CacheTTLSeconds    int `mapstructure:"dashboard_cache_ttl_seconds"`
	HistoryOverlayDays int `mapstructure:"dashboard_history_overlay_days"`
	DefaultHorizon     int `mapstructure:"dashboard_default_horizon"`
	MinHorizon         int `mapstructure:"dashboard_min_horizon"`
	MaxHorizon         int `mapstructure:"dashboard_max_horizon"`
}

type Retrain struct {
	CronSchedule string `mapstructure:"retrain_cron"`
	Enabled      bool   `mapstructure:"retrain_enabled"`
}

type Auth struct {
	Secret string `mapstructure:"auth_secret"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/ecommerce?sslmode=disable")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("INGEST_FILE_PATH", filepath.Join("data", "Online Retail.xlsx"))
	viper.SetDefault("INGEST_RAW_TABLE", "raw_retail_sales")

	viper.SetDefault("TRAIN_CLEANED_TABLE", "sales_cleaned")
	viper.SetDefault("TRAIN_MODEL_PATH", "sarima_model.json")
	// The source dataset covers 2010-2011; timestamps outside this window are
	// bad dates coming from the spreadsheet.
	viper.SetDefault("TRAIN_MIN_DATE", "2009-01-01")
	viper.SetDefault("TRAIN_MAX_DATE", "2013-01-01")
	viper.SetDefault("TRAIN_MAX_ITERATIONS", 25)

	viper.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 600)
	viper.SetDefault("DASHBOARD_HISTORY_OVERLAY_DAYS", 90)
	viper.SetDefault("DASHBOARD_DEFAULT_HORIZON", 30)
	viper.SetDefault("DASHBOARD_MIN_HORIZON", 7)
	viper.SetDefault("DASHBOARD_MAX_HORIZON", 180)

	viper.SetDefault("RETRAIN_CRON", "0 3 * * *")
	viper.SetDefault("RETRAIN_ENABLED", false)

	viper.SetDefault("AUTH_SECRET", "your_secret_key")

	viper.SetDefault("LOG_LEVEL", "info")
}

func NewConfig() (*Config, error) {
	loadEnvFile()

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Debug("no .env file readable by viper, relying on environment variables: ", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// ValidateDatabaseCredentials is called by the training binary before doing
// any work. The other stages do not pre-validate and fail at connection time.
func (c *Config) ValidateDatabaseCredentials() error {
	if c.Database.User == "" || c.Database.Password == "" || c.Database.URL == "" {
		return fmt.Errorf("database credentials are not fully set (DATABASE_USER, DATABASE_PASSWORD, DATABASE_URL)")
	}
	return nil
}

func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("could not determine working directory: ", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Debug("loaded .env from ", location)
			return
		}
	}
}
