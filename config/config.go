package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Dataset struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"dataset"`
	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`
	Engine struct {
		DebounceMs int           `mapstructure:"debounceMs"`
		ResultTTL  time.Duration `mapstructure:"resultTTL"`
	} `mapstructure:"engine"`
	Geolocate struct {
		Provider       string  `mapstructure:"provider"`
		TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
		StaticLat      float64 `mapstructure:"staticLat"`
		StaticLon      float64 `mapstructure:"staticLon"`
	} `mapstructure:"geolocate"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
