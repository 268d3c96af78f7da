package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NumberingConfig controls invoice number defaults applied to tenants
// that have not saved their own template.
type NumberingConfig struct {
	DefaultPrefix           string `mapstructure:"defaultPrefix"`
	DefaultPadWidth         int    `mapstructure:"defaultPadWidth"`
	MaxAutoAttempts         int    `mapstructure:"maxAutoAttempts"`
	TemplateCacheTTLSeconds int    `mapstructure:"templateCacheTTLSeconds"`
}

func DefaultNumberingConfig() NumberingConfig {
	return NumberingConfig{
		DefaultPrefix:           "INV-",
		DefaultPadWidth:         4,
		MaxAutoAttempts:         5,
		TemplateCacheTTLSeconds: 30,
	}
}

type NumberingConfigHolder struct {
	current atomic.Value // holds NumberingConfig
}

// NewStaticNumberingConfigHolder returns a holder that never reloads.
func NewStaticNumberingConfigHolder(cfg NumberingConfig) *NumberingConfigHolder {
	holder := &NumberingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewNumberingConfigHolder(cfg Config) (*NumberingConfigHolder, error) {
	v := viper.New()

	if cfg.NumberingConfigPath != "" {
		v.SetConfigFile(cfg.NumberingConfigPath)
	} else {
		v.SetConfigName("numbering")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/edubill/config")
		v.AddConfigPath("/etc/edubill")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EDUBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNumberingConfig()
	v.SetDefault("numbering.defaultPrefix", defaults.DefaultPrefix)
	v.SetDefault("numbering.defaultPadWidth", defaults.DefaultPadWidth)
	v.SetDefault("numbering.maxAutoAttempts", defaults.MaxAutoAttempts)
	v.SetDefault("numbering.templateCacheTTLSeconds", defaults.TemplateCacheTTLSeconds)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var loaded NumberingConfig
	if err := v.UnmarshalKey("numbering", &loaded); err != nil {
		return nil, err
	}
	if err := validateNumberingConfig(loaded); err != nil {
		return nil, err
	}

	holder := NewStaticNumberingConfigHolder(loaded)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NumberingConfig
		if err := v.UnmarshalKey("numbering", &updated); err != nil {
			log.Printf("[numbering-config] reload failed: %v", err)
			return
		}
		if err := validateNumberingConfig(updated); err != nil {
			log.Printf("[numbering-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[numbering-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *NumberingConfigHolder) Get() NumberingConfig {
	return h.current.Load().(NumberingConfig)
}

func validateNumberingConfig(cfg NumberingConfig) error {
	if cfg.DefaultPadWidth < 0 || cfg.DefaultPadWidth > 18 {
		return errors.New("numbering.defaultPadWidth must be between 0 and 18")
	}
	if cfg.MaxAutoAttempts < 1 {
		return errors.New("numbering.maxAutoAttempts must be at least 1")
	}
	if cfg.TemplateCacheTTLSeconds < 0 {
		return errors.New("numbering.templateCacheTTLSeconds cannot be negative")
	}
	return nil
}
