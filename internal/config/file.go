package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "epson-bridge"
	configFile = "config.yaml"
)

var (
	loaded     *Config
	loadedOnce sync.Once
	loadedErr  error

	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory.
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load returns the process configuration, reading the default path once.
func Load() (*Config, error) {
	loadedOnce.Do(func() {
		var path string
		path, loadedErr = GetConfigPath()
		if loadedErr != nil {
			loadedErr = fmt.Errorf("failed to get config path: %w", loadedErr)
			return
		}
		loaded, loadedErr = LoadFile(path)
	})
	return loaded, loadedErr
}

// LoadFile reads and validates a configuration file. A missing file yields
// Default(). Keys absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.SaveFile(path)
}

// SaveFile writes the configuration atomically to path.
func (c *Config) SaveFile(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# epson-bridge configuration\n# Location: " + path + "\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
