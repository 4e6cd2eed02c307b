package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MAILORG_MAILBOX_ADDRESS.
const EnvPrefix = "MAILORG"

// MailboxConfig identifies the IMAP account and the folder scanned.
type MailboxConfig struct {
	Address  string `mapstructure:"address" yaml:"address"`
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort int    `mapstructure:"imap_port" yaml:"imap_port"`
	Folder   string `mapstructure:"folder" yaml:"folder"`
}

// SMTPConfig is the submission server used for auto-replies.
type SMTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// AnalysisConfig holds analysis defaults.
type AnalysisConfig struct {
	DefaultDays int `mapstructure:"default_days" yaml:"default_days"`
}

// StorageConfig locates the rule file, the auto-reply settings file and
// the run history database. Relative file names resolve against DataDir.
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	RulesFile     string `mapstructure:"rules_file" yaml:"rules_file"`
	AutoReplyFile string `mapstructure:"auto_reply_file" yaml:"auto_reply_file"`
	HistoryDB     string `mapstructure:"history_db" yaml:"history_db"`
}

// ScheduleConfig controls unattended processing. An empty ProcessCron
// disables it.
type ScheduleConfig struct {
	ProcessCron string `mapstructure:"process_cron" yaml:"process_cron"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig selects the log level and, optionally, a log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mailbox  MailboxConfig  `mapstructure:"mailbox" yaml:"mailbox"`
	SMTP     SMTPConfig     `mapstructure:"smtp" yaml:"smtp"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DefaultConfigDir returns ~/.config/mailorganizer.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailorganizer")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailorganizer/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Mailbox: MailboxConfig{
			IMAPHost: "imap.gmail.com",
			IMAPPort: 993,
			Folder:   "INBOX",
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Analysis: AnalysisConfig{DefaultDays: 30},
		Storage: StorageConfig{
			DataDir:       DefaultConfigDir(),
			RulesFile:     "email_rules.json",
			AutoReplyFile: "auto_reply_settings.json",
			HistoryDB:     "history.db",
		},
		Display: DisplayConfig{Theme: "default"},
		Log:     LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("mailbox.address", d.Mailbox.Address)
	v.SetDefault("mailbox.imap_host", d.Mailbox.IMAPHost)
	v.SetDefault("mailbox.imap_port", d.Mailbox.IMAPPort)
	v.SetDefault("mailbox.folder", d.Mailbox.Folder)
	v.SetDefault("smtp.host", d.SMTP.Host)
	v.SetDefault("smtp.port", d.SMTP.Port)
	v.SetDefault("analysis.default_days", d.Analysis.DefaultDays)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.rules_file", d.Storage.RulesFile)
	v.SetDefault("storage.auto_reply_file", d.Storage.AutoReplyFile)
	v.SetDefault("storage.history_db", d.Storage.HistoryDB)
	v.SetDefault("schedule.process_cron", d.Schedule.ProcessCron)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. Environment variables prefixed with MAILORG_ override file
// values. If the file does not exist, defaults (plus any environment
// overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)
	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mailbox", cfg.Mailbox)
	v.Set("smtp", cfg.SMTP)
	v.Set("analysis", cfg.Analysis)
	v.Set("storage", cfg.Storage)
	v.Set("schedule", cfg.Schedule)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// RulesPath is the absolute location of the rule file.
func (c *AppConfig) RulesPath() string { return c.resolve(c.Storage.RulesFile) }

// AutoReplyPath is the absolute location of the auto-reply settings file.
func (c *AppConfig) AutoReplyPath() string { return c.resolve(c.Storage.AutoReplyFile) }

// HistoryPath is the absolute location of the run history database.
func (c *AppConfig) HistoryPath() string { return c.resolve(c.Storage.HistoryDB) }

// LogPath is the configured log file, defaulting to mailorganizer.log in
// the data directory.
func (c *AppConfig) LogPath() string {
	if c.Log.File == "" {
		return c.resolve("mailorganizer.log")
	}
	return c.resolve(c.Log.File)
}

func (c *AppConfig) resolve(name string) string {
	name = expandHome(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Storage.DataDir, name)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
