package logger

import (
	"os"
	"strconv"
)

// Config holds logging configuration. It is the `logging:` block of the
// engine config file.
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// DefaultConfig returns console-only text logging at INFO
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/questd.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// WithDefaults fills zero-valued sizes, paths and formats from DefaultConfig.
// Booleans are taken as given.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Level == "" {
		c.Level = def.Level
	}
	if c.ConsoleFormat == "" {
		c.ConsoleFormat = def.ConsoleFormat
	}
	if c.FilePath == "" {
		c.FilePath = def.FilePath
	}
	if c.FileFormat == "" {
		c.FileFormat = def.FileFormat
	}
	if c.FileMaxSizeMB <= 0 {
		c.FileMaxSizeMB = def.FileMaxSizeMB
	}
	if c.FileMaxBackups <= 0 {
		c.FileMaxBackups = def.FileMaxBackups
	}
	if c.FileMaxAgeDays <= 0 {
		c.FileMaxAgeDays = def.FileMaxAgeDays
	}
	return c
}

// ApplyEnv applies QUEST_LOG_* environment variable overrides
func (c Config) ApplyEnv() Config {
	if logLevel := os.Getenv("QUEST_LOG_LEVEL"); logLevel != "" {
		c.Level = logLevel
	}

	if consoleFormat := os.Getenv("QUEST_LOG_CONSOLE_FORMAT"); consoleFormat != "" {
		c.ConsoleFormat = consoleFormat
	}

	if fileEnabled := os.Getenv("QUEST_LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			c.FileEnabled = enabled
		}
	}

	if filePath := os.Getenv("QUEST_LOG_FILE_PATH"); filePath != "" {
		c.FilePath = filePath
	}

	return c
}
