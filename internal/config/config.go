package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Open     OpenConfig     `mapstructure:"open"`
}

type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	AuthScheme string        `mapstructure:"auth_scheme"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig controls the local article index. An empty IndexPath keeps
// the index in memory for the lifetime of the process.
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// OpenConfig controls handing articles and profiles to the web frontend.
// An empty WebURL is derived from the API base URL by dropping its /api
// suffix. An empty Command picks the platform opener.
type OpenConfig struct {
	WebURL  string `mapstructure:"web_url"`
	Command string `mapstructure:"command"`
}

type UIConfig struct {
	Colors          UIColors      `mapstructure:"colors"`
	Article         ArticleConfig `mapstructure:"article"`
	ArticlesPerPage int           `mapstructure:"articles_per_page"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ArticleConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit     string `mapstructure:"quit"`
	Search   string `mapstructure:"search"`
	Refresh  string `mapstructure:"refresh"`
	Favorite string `mapstructure:"favorite"`
	Follow   string `mapstructure:"follow"`
	Editor   string `mapstructure:"editor"`
	Settings string `mapstructure:"settings"`
	Back     string `mapstructure:"back"`
	Help     string `mapstructure:"help"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".blogify", "session.db")
	logPath := filepath.Join(homeDir, ".blogify", "blogify.log")

	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:3000/api",
			Timeout:    30 * time.Second,
			UserAgent:  "blogify/1.0 (https://github.com/pders01/blogify)",
			AuthScheme: "Token",
		},
		Database: DatabaseConfig{
			Path:    dbPath,
			Timeout: 1 * time.Second,
		},
		Search: SearchConfig{
			IndexPath: "",
		},
		Log: LogConfig{
			Level: "off",
			Path:  logPath,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#5CB85C",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Article: ArticleConfig{
				MaxDescriptionLength: 150,
				WordWrapMaxWidth:     120,
				WordWrapMinWidth:     40,
			},
			ArticlesPerPage: 10,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:     "q",
				Search:   "s",
				Refresh:  "r",
				Favorite: "f",
				Follow:   "u",
				Editor:   "n",
				Settings: "o",
				Back:     "esc",
				Help:     "?",
			},
		},
	}
}

func Load(configPath string) (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("api", cfg.API)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("search", cfg.Search)
	v.SetDefault("log", cfg.Log)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("keys", cfg.Keys)
	v.SetDefault("open", cfg.Open)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "blogify")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BLOGIFY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// AutomaticEnv does not bind nested keys registered via struct defaults.
	if baseURL := os.Getenv("BLOGIFY_API_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}

	if config.UI.ArticlesPerPage <= 0 {
		config.UI.ArticlesPerPage = 10
	}

	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Search.IndexPath = expandPath(cfg.Search.IndexPath)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	apiCfg := map[string]interface{}{
		"base_url":    config.API.BaseURL,
		"timeout":     config.API.Timeout.String(),
		"user_agent":  config.API.UserAgent,
		"auth_scheme": config.API.AuthScheme,
	}

	dbCfg := map[string]interface{}{
		"path":    config.Database.Path,
		"timeout": config.Database.Timeout.String(),
	}

	searchCfg := map[string]interface{}{
		"index_path": config.Search.IndexPath,
	}

	logCfg := map[string]interface{}{
		"level": config.Log.Level,
		"path":  config.Log.Path,
	}

	v.Set("api", apiCfg)
	v.Set("database", dbCfg)
	v.Set("search", searchCfg)
	v.Set("log", logCfg)
	v.Set("ui", config.UI)
	v.Set("keys", config.Keys)
	v.Set("open", map[string]interface{}{
		"web_url": config.Open.WebURL,
		"command": config.Open.Command,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
