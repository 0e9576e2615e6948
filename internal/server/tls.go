package server

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// NewTLSConfig loads a certificate pair for serving wss://.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return buildTLSConfig(cert), nil
}

// NewTLSConfigFromMemory builds a TLS configuration from PEM data.
func NewTLSConfigFromMemory(certPEM, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate from memory: %w", err)
	}
	return buildTLSConfig(cert), nil
}

func buildTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// GetTLSInfo returns human-readable TLS configuration information
func GetTLSInfo(config *tls.Config) map[string]interface{} {
	if config == nil {
		return map[string]interface{}{"enabled": false}
	}
	return map[string]interface{}{
		"enabled":     true,
		"min_version": tls.VersionName(config.MinVersion),
		"num_certs":   len(config.Certificates),
	}
}
