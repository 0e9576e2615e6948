// Package config manages the bridge's YAML configuration file.
//
// The file lives in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/epson-bridge/config.yaml or $HOME/.config/epson-bridge/config.yaml
//   - macOS: $HOME/.config/epson-bridge/config.yaml
//   - Windows: %LOCALAPPDATA%\epson-bridge\config.yaml
//
// A missing file is not an error; Default() is used instead. Command-line
// flags override whatever the file says.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	window := cfg.Discovery.Window()
//
// Save writes atomically (temporary file plus rename).
package config
