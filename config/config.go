package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rapidaai/interview/pkg/configs"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Secret   string `mapstructure:"secret"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	PostgresConfig configs.PostgresConfig    `mapstructure:"postgres" validate:"required"`
	RedisConfig    configs.RedisConfig       `mapstructure:"redis" validate:"required"`
	UploadStore    configs.UploadStoreConfig `mapstructure:"upload_store" validate:"required"`

	// Upstream collaborators.
	OrchestrationHost string        `mapstructure:"orchestration_host" validate:"required"`
	AuthHost          string        `mapstructure:"auth_host" validate:"required"`
	UpstreamTimeout   time.Duration `mapstructure:"upstream_timeout" validate:"required"`

	// DeviceCheckTTL bounds how long a passed camera/microphone check keeps
	// the recording page reachable.
	DeviceCheckTTL time.Duration `mapstructure:"device_check_ttl" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "interview-portal-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 5345)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("SECRET", "")

	// upstream collaborators
	v.SetDefault("ORCHESTRATION_HOST", "http://localhost:8080/api")
	v.SetDefault("AUTH_HOST", "http://localhost:9000")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("DEVICE_CHECK_TTL", "1h")

	v.SetDefault("UPLOAD_STORE__DIRECTORY", "uploads")
	v.SetDefault("UPLOAD_STORE__MAX_CLIP_BYTES", 50*1024*1024)

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "interview_portal")
	v.SetDefault("POSTGRES__AUTH__USER", "postgres")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "postgres")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")

	v.SetDefault("REDIS__HOST", "localhost")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DATABASE", 0)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
