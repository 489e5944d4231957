package connection

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	DefaultBatchSize      = 100
	DefaultLockTTLSeconds = 30 * 60

	envLocalPassword  = "DRSYNC_LOCAL_PASSWORD"
	envOnlinePassword = "DRSYNC_ONLINE_PASSWORD"
	envRedisPassword  = "DRSYNC_REDIS_PASSWORD"
)

// LoadSettings reads the JSON settings file at path, applies environment
// password overrides and fills defaults.
func LoadSettings(path string) (SyncSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SyncSettings{}, fmt.Errorf("读取配置文件失败：%w", err)
	}
	return ParseSettings(raw)
}

// ParseSettings decodes settings from raw JSON.
func ParseSettings(raw []byte) (SyncSettings, error) {
	var settings SyncSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return SyncSettings{}, fmt.Errorf("解析配置文件失败：%w", err)
	}

	overridePassword(&settings.Local.Password, envLocalPassword)
	overridePassword(&settings.Online.Password, envOnlinePassword)
	overridePassword(&settings.Lock.Redis.Password, envRedisPassword)

	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultBatchSize
	}
	settings.Lock.Backend = strings.ToLower(strings.TrimSpace(settings.Lock.Backend))
	if settings.Lock.Backend == "" {
		settings.Lock.Backend = "memory"
	}
	if settings.Lock.TTLSeconds <= 0 {
		settings.Lock.TTLSeconds = DefaultLockTTLSeconds
	}

	if err := settings.Validate(); err != nil {
		return SyncSettings{}, err
	}
	return settings, nil
}

// Validate checks that both databases are described well enough to connect.
func (s SyncSettings) Validate() error {
	for _, c := range []struct {
		label string
		cfg   ConnectionConfig
	}{{"local", s.Local}, {"online", s.Online}} {
		if strings.TrimSpace(c.cfg.Type) == "" {
			return fmt.Errorf("%s: database type required", c.label)
		}
		if strings.TrimSpace(c.cfg.Host) == "" {
			return fmt.Errorf("%s: host required", c.label)
		}
	}
	switch s.Lock.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(s.Lock.Redis.Host) == "" {
			return fmt.Errorf("lock: redis host required")
		}
	default:
		return fmt.Errorf("lock: unsupported backend %q", s.Lock.Backend)
	}
	return nil
}

func overridePassword(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok {
		*dst = v
	}
}
