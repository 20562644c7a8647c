package cache

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/go-viper/mapstructure/v2"
)

// Config contains the configuration of the cache middleware
type Config struct {
	// MaxSize is the maximum number of cached entries
	MaxSize int
	// MaxAge is the lifetime of a cached entry
	MaxAge time.Duration
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxSize: 1000,
		MaxAge:  5 * time.Minute,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return payload.NewError(payload.KindInvalidOption, "", "cache: maxSize must be positive, got %d", c.MaxSize)
	}
	if c.MaxAge <= 0 {
		return payload.NewError(payload.KindInvalidOption, "", "cache: maxAge must be positive, got %v", c.MaxAge)
	}
	return nil
}

// options is the wire shape of the configuration
type options struct {
	MaxSize *int `mapstructure:"maxSize"`
	MaxAge  any  `mapstructure:"maxAge"`
}

// ParseOptions decodes an option map into a Config. Missing options keep
// their default, unknown options are rejected.
func ParseOptions(opts map[string]any) (Config, error) {
	cfg := DefaultConfig()

	var raw options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &raw,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(opts); err != nil {
		return cfg, payload.NewError(payload.KindInvalidOption, "", "cache: %v", err)
	}

	if raw.MaxSize != nil {
		cfg.MaxSize = *raw.MaxSize
	}
	if raw.MaxAge != nil {
		age, err := parseAge(raw.MaxAge)
		if err != nil {
			return cfg, payload.NewError(payload.KindInvalidOption, "", "cache: maxAge: %v", err)
		}
		cfg.MaxAge = age
	}
	return cfg, cfg.Validate()
}

// parseAge accepts milliseconds or a duration string
func parseAge(v any) (time.Duration, error) {
	switch t := v.(type) {
	case string:
		return time.ParseDuration(t)
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}
