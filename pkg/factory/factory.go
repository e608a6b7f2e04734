// Package factory provides a default implementation of the client.Factory interface,
// creating share clients based on backend configuration.
package factory

import (
	"fmt"

	"digital.vasic.smbshare/internal/logger"
	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/native"
	"digital.vasic.smbshare/pkg/runner"
	"digital.vasic.smbshare/pkg/smbclient"
)

// Backend names.
const (
	BackendSMBClient = "smbclient"
	BackendNative    = "native"
)

// DefaultFactory implements client.Factory for all supported backends.
type DefaultFactory struct {
	// Instrument, when set, wraps every runner the factory builds.
	Instrument func(runner.Runner) runner.Runner
}

// NewDefaultFactory creates a new default share factory.
func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateShare creates a share client based on the storage configuration.
// An empty backend selects smbclient.
func (f *DefaultFactory) CreateShare(config *client.StorageConfig) (client.Share, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	creds := CredentialsFromSettings(config.Settings)
	if creds.Host == "" || creds.Share == "" {
		return nil, fmt.Errorf("host and share settings are required")
	}

	var r runner.Runner
	switch config.Backend {
	case "", BackendSMBClient:
		r = runner.NewExecRunner(
			GetStringSetting(config.Settings, "smbclient_path", ""),
			creds,
			runner.WithMaxOutput(GetInt64Setting(config.Settings, "max_output", runner.DefaultMaxOutput)),
		)

	case BackendNative:
		r = native.NewRunner(creds)

	default:
		return nil, fmt.Errorf("unsupported backend: %s", config.Backend)
	}

	if f.Instrument != nil {
		r = f.Instrument(r)
	}

	logger.Debug("share client created",
		logger.KeyBackend, backendName(config.Backend),
		logger.KeyHost, creds.Host,
		logger.KeyShare, creds.Share,
		logger.KeyUser, creds.Username)

	return smbclient.New(r), nil
}

// SupportedBackends returns the list of supported backends.
func (f *DefaultFactory) SupportedBackends() []string {
	return []string{BackendSMBClient, BackendNative}
}

func backendName(b string) string {
	if b == "" {
		return BackendSMBClient
	}
	return b
}

// CredentialsFromSettings reads the connection keys of a settings map.
func CredentialsFromSettings(settings map[string]interface{}) client.Credentials {
	return client.Credentials{
		Host:        GetStringSetting(settings, "host", ""),
		Share:       GetStringSetting(settings, "share", ""),
		Domain:      GetStringSetting(settings, "domain", ""),
		Username:    GetStringSetting(settings, "username", ""),
		Password:    GetStringSetting(settings, "password", ""),
		Port:        GetIntSetting(settings, "port", 0),
		MaxProtocol: GetStringSetting(settings, "max_protocol", ""),
	}
}

// GetStringSetting extracts a string setting from a settings map.
func GetStringSetting(settings map[string]interface{}, key, defaultValue string) string {
	if val, ok := settings[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetIntSetting extracts an int setting from a settings map.
func GetIntSetting(settings map[string]interface{}, key string, defaultValue int) int {
	if val, ok := settings[key]; ok {
		if num, ok := val.(int); ok {
			return num
		}
		if floatNum, ok := val.(float64); ok {
			return int(floatNum)
		}
	}
	return defaultValue
}

// GetInt64Setting extracts an int64 setting from a settings map.
func GetInt64Setting(settings map[string]interface{}, key string, defaultValue int64) int64 {
	if val, ok := settings[key]; ok {
		switch num := val.(type) {
		case int64:
			return num
		case int:
			return int64(num)
		case uint64:
			return int64(num)
		case float64:
			return int64(num)
		}
	}
	return defaultValue
}
