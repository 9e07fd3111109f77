package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "jobscout"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
)

// Config contains the API credentials, pipeline tuning, storage paths, and
// SMTP settings. Values come from the config file first, then environment
// overrides on top.
type Config struct {
	APIKey  string `json:"api_key"`
	APIHost string `json:"api_host"`

	MaxTotalPages int `json:"max_total_pages"`
	PageTimeout   int `json:"page_timeout_seconds"`
	FetchBudget   int `json:"fetch_budget_seconds"`
	SalaryFloor   int `json:"salary_floor"`
	ScrapeCap     int `json:"scrape_cap"`

	Port    int    `json:"port"`
	DataDir string `json:"data_dir"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
	EmailFrom    string `json:"email_from"`
	AdminEmail   string `json:"admin_email"`
}

func DefaultConfig() Config {
	return Config{
		APIHost:       "jsearch.p.rapidapi.com",
		MaxTotalPages: 10,
		PageTimeout:   25,
		FetchBudget:   50,
		SalaryFloor:   5000,
		ScrapeCap:     5,
		Port:          8080,
		SMTPPort:      587,
	}
}

func (c Config) PageTimeoutDuration() time.Duration {
	return time.Duration(c.PageTimeout) * time.Second
}

func (c Config) FetchBudgetDuration() time.Duration {
	return time.Duration(c.FetchBudget) * time.Second
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

// Load reads the config file, then applies environment overrides. A local
// .env file is folded into the environment first so development setups
// need no shell exports. A missing config file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json5.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if cfg.DataDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return cfg, err
		}
		cfg.DataDir = filepath.Join(dir, "data")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.APIKey = envString("JOBSCOUT_API_KEY", cfg.APIKey)
	cfg.APIHost = envString("JOBSCOUT_API_HOST", cfg.APIHost)
	cfg.MaxTotalPages = envInt("JOBSCOUT_MAX_TOTAL_PAGES", cfg.MaxTotalPages)
	cfg.PageTimeout = envInt("JOBSCOUT_PAGE_TIMEOUT", cfg.PageTimeout)
	cfg.FetchBudget = envInt("JOBSCOUT_FETCH_BUDGET", cfg.FetchBudget)
	cfg.SalaryFloor = envInt("JOBSCOUT_SALARY_FLOOR", cfg.SalaryFloor)
	cfg.ScrapeCap = envInt("JOBSCOUT_SCRAPE_CAP", cfg.ScrapeCap)
	cfg.Port = envInt("JOBSCOUT_PORT", cfg.Port)
	cfg.DataDir = envString("JOBSCOUT_DATA_DIR", cfg.DataDir)
	cfg.SMTPHost = envString("JOBSCOUT_SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("JOBSCOUT_SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envString("JOBSCOUT_SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envString("JOBSCOUT_SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.EmailFrom = envString("JOBSCOUT_EMAIL_FROM", cfg.EmailFrom)
	cfg.AdminEmail = envString("JOBSCOUT_ADMIN_EMAIL", cfg.AdminEmail)
}

// Init writes default config.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadProxies resolves the proxy list: flag value first, then environment,
// then the proxies file. Blank lines and # comments are skipped.
func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv("JOBSCOUT_PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
