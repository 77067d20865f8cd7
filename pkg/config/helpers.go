package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/gogenome/pkg/errors"
)

// SetValue sets a configuration value by key.
// Supported keys:
//   - genomes_dir, cache_dir, plugin_dir, user_agent, log_level: string
//   - cache_ttl, http_timeout: duration (e.g. 168h, 30s)
//   - bgzip: bool
//   - threads: int
//   - plugins: comma separated list, run in the given order
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "genomes_dir":
		c.Settings.GenomesDir = value
	case "cache_dir":
		c.Settings.CacheDir = value
	case "plugin_dir":
		c.Settings.PluginDir = value
	case "user_agent":
		c.Settings.UserAgent = value
	case "log_level":
		c.Settings.LogLevel = value
	case "cache_ttl", "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", key, value)
		}
		if key == "cache_ttl" {
			c.Settings.CacheTTL = d
		} else {
			c.Settings.HTTPTimeout = d
		}
	case "bgzip":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		c.Settings.BGZip = b
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		c.Settings.Threads = n
	case "plugins":
		c.Settings.Plugins = splitList(value)
	default:
		return fmt.Errorf("%w: %s", errors.ErrConfigUnknownKey, key)
	}
	return c.Validate()
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	m := c.ToMap()
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrConfigUnknownKey, key)
	}
	return v, nil
}

// ToMap flattens Settings into yaml key -> display value.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		field := settingsType.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlKey := strings.Split(yamlTag, ",")[0]
		fieldValue := settingsValue.Field(i)

		var strValue string
		switch v := fieldValue.Interface().(type) {
		case time.Duration:
			strValue = v.String()
		case []string:
			strValue = strings.Join(v, ",")
		case bool:
			strValue = strconv.FormatBool(v)
		case int:
			strValue = strconv.Itoa(v)
		case string:
			strValue = v
		default:
			strValue = fmt.Sprintf("%v", v)
		}
		result[yamlKey] = strValue
	}

	return result
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
