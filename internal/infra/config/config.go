// Пакет config собирает конфигурацию бота из окружения (.env через godotenv).
//
// Значения нормализуются и проверяются при загрузке. Некритичные ошибки не
// роняют старт: подставляется значение по умолчанию, а в Warnings() попадает
// предупреждение. Обязателен только DISCORD_TOKEN.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvConfig — операционные параметры запуска.
type EnvConfig struct {
	DiscordToken string
	LogLevel     string
	// Файловое логирование; пустой LogFile выключает его.
	LogFile           string
	LogFileLevel      string
	LogFileMaxSize    int
	LogFileMaxBackups int
	LogFileMaxAge     int
	LogFileCompress   bool
	// Хранилище профилей.
	StoreBackend string
	StoreFile    string
	StoreWatch   bool
	// Доставка и обработка событий.
	NotifyRPS       int
	DedupWindowSec  int
	FreshnessSec    int
	ContextMessages int
	ContentLimit    int
	CLIEnable       bool
}

// Config хранит загруженную конфигурацию. Публичные геттеры берут RLock.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

// Хранилища профилей.
const (
	StoreBolt = "bolt"
	StoreJSON = "json"
)

const (
	defaultLogLevel          = "info"
	defaultLogFileLevel      = "debug"
	defaultLogFileMaxSize    = 50
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 7
	defaultLogFileCompress   = true
	defaultStoreBackend      = StoreBolt
	defaultBoltFile          = "data/profiles.bbolt"
	defaultJSONFile          = "data/profiles.json"
	defaultStoreWatch        = false
	defaultNotifyRPS         = 5
	defaultDedupWindowSec    = 120
	defaultFreshnessSec      = 300
	defaultContextMessages   = 2
	defaultContentLimit      = 700
	defaultCLIEnable         = true
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load читает envPath и фиксирует результат в глобальном экземпляре.
// Отсутствующий файл не ошибка: значения могут прийти из окружения процесса.
// Повторный вызов запрещён.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}
	newCfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	cfgInstance = newCfg
	cfgDone = true
	return nil
}

// loadConfig собирает Config без изменения глобального состояния.
func loadConfig(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	token := strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	if token == "" {
		return nil, errors.New("env DISCORD_TOKEN must be set")
	}

	var warnings []string

	backend := sanitizeBackend(os.Getenv("STORE_BACKEND"), &warnings)
	defaultStoreFile := defaultBoltFile
	if backend == StoreJSON {
		defaultStoreFile = defaultJSONFile
	}

	env := EnvConfig{
		DiscordToken:      token,
		LogLevel:          sanitizeLogLevel("LOG_LEVEL", os.Getenv("LOG_LEVEL"), defaultLogLevel, &warnings),
		LogFile:           strings.TrimSpace(os.Getenv("LOG_FILE")),
		LogFileLevel:      sanitizeLogLevel("LOG_FILE_LEVEL", os.Getenv("LOG_FILE_LEVEL"), defaultLogFileLevel, &warnings),
		LogFileMaxSize:    parseIntDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSize, greaterThanZero, &warnings),
		LogFileMaxBackups: parseIntDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, nonNegative, &warnings),
		LogFileMaxAge:     parseIntDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge, nonNegative, &warnings),
		LogFileCompress:   parseBoolDefault("LOG_FILE_COMPRESS", defaultLogFileCompress, &warnings),
		StoreBackend:      backend,
		StoreFile:         sanitizeFile("STORE_FILE", os.Getenv("STORE_FILE"), defaultStoreFile, &warnings),
		StoreWatch:        parseBoolDefault("STORE_WATCH", defaultStoreWatch, &warnings),
		NotifyRPS:         parseIntDefault("NOTIFY_RPS", defaultNotifyRPS, greaterThanZero, &warnings),
		DedupWindowSec:    parseIntDefault("DEDUP_WINDOW_SEC", defaultDedupWindowSec, nonNegative, &warnings),
		FreshnessSec:      parseIntDefault("FRESHNESS_SEC", defaultFreshnessSec, greaterThanZero, &warnings),
		ContextMessages:   parseIntDefault("CONTEXT_MESSAGES", defaultContextMessages, nonNegative, &warnings),
		ContentLimit:      parseIntDefault("CONTENT_LIMIT", defaultContentLimit, greaterThanZero, &warnings),
		CLIEnable:         parseBoolDefault("CLI_ENABLE", defaultCLIEnable, &warnings),
	}
	if env.StoreWatch && env.StoreBackend != StoreJSON {
		appendWarningf(&warnings, "env STORE_WATCH ignored: only the %q backend can be watched", StoreJSON)
		env.StoreWatch = false
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings возвращает копию предупреждений, накопленных при загрузке.
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	result := make([]string, len(cfgInstance.warnings))
	copy(result, cfgInstance.warnings)
	return result
}

// Env возвращает снимок EnvConfig.
func Env() EnvConfig {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	return cfgInstance.Env
}

// parseIntDefault читает name как int. Пустое, некорректное или не прошедшее
// validator значение заменяется на defaultVal с предупреждением.
func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %d", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }

// parseBoolDefault читает name как bool; ошибки превращаются в defaultVal с предупреждением.
func parseBoolDefault(name string, defaultVal bool, warnings *[]string) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %v", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid boolean; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// sanitizeLogLevel ограничивает уровень набором {debug, info, warn, error}.
func sanitizeLogLevel(name, level, defaultVal string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, defaultVal)
		return defaultVal
	}
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env %s value %q is invalid; using default %q", name, level, defaultVal)
		return defaultVal
	}
}

// sanitizeBackend выбирает хранилище профилей (bolt|json).
func sanitizeBackend(value string, warnings *[]string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		appendWarningf(warnings, "env STORE_BACKEND is not set; using default %q", defaultStoreBackend)
		return defaultStoreBackend
	case StoreBolt, StoreJSON:
		return v
	default:
		appendWarningf(warnings, "env STORE_BACKEND value %q is invalid; using default %q", value, defaultStoreBackend)
		return defaultStoreBackend
	}
}

// sanitizeFile подставляет fallback вместо пустого пути.
func sanitizeFile(name, value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, fallback)
		return fallback
	}
	return v
}
