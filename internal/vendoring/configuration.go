package vendoring

import (
	"strings"
	"time"

	"github.com/temirov/vendman/internal/manifest"
	"github.com/temirov/vendman/internal/scm"
)

// Provider names accepted by the provider setting.
const (
	ProviderShell    = "shell"
	ProviderEmbedded = "gogit"

	providerEmbeddedAliasConstant     = "embedded"
	defaultRootDirectoryConstant      = "~/.vendman"
	defaultOperationTimeoutConstant   = 5 * time.Minute
	defaultLockTimeoutConstant        = 10 * time.Second
	defaultConcurrencyConstant        = 4
	rootConfigurationKeyConstant      = "root"
	manifestFileConfigurationKey      = "manifest_file"
	providerConfigurationKeyConstant  = "provider"
	remoteConfigurationKeyConstant    = "remote"
	timeoutConfigurationKeyConstant   = "timeout"
	lockTimeoutConfigurationKey       = "lock_timeout"
	concurrencyConfigurationKey       = "concurrency"
	configurationKeySeparatorConstant = "."
)

// Configuration captures the vendman section of the configuration file.
type Configuration struct {
	RootDirectory    string        `mapstructure:"root"`
	ManifestFileName string        `mapstructure:"manifest_file"`
	Provider         string        `mapstructure:"provider"`
	RemoteName       string        `mapstructure:"remote"`
	OperationTimeout time.Duration `mapstructure:"timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	Concurrency      int           `mapstructure:"concurrency"`
}

// DefaultConfiguration provides baseline configuration values.
func DefaultConfiguration() Configuration {
	return Configuration{
		RootDirectory:    defaultRootDirectoryConstant,
		ManifestFileName: manifest.DefaultManifestFileName,
		Provider:         ProviderShell,
		RemoteName:       scm.DefaultRemoteName,
		OperationTimeout: defaultOperationTimeoutConstant,
		LockTimeout:      defaultLockTimeoutConstant,
		Concurrency:      defaultConcurrencyConstant,
	}
}

// DefaultConfigurationValues returns viper defaults for the configuration stored under keyPrefix.
func DefaultConfigurationValues(keyPrefix string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := strings.TrimSpace(keyPrefix)
	if len(prefix) > 0 {
		prefix += configurationKeySeparatorConstant
	}
	return map[string]any{
		prefix + rootConfigurationKeyConstant:     defaults.RootDirectory,
		prefix + manifestFileConfigurationKey:     defaults.ManifestFileName,
		prefix + providerConfigurationKeyConstant: defaults.Provider,
		prefix + remoteConfigurationKeyConstant:   defaults.RemoteName,
		prefix + timeoutConfigurationKeyConstant:  defaults.OperationTimeout.String(),
		prefix + lockTimeoutConfigurationKey:      defaults.LockTimeout.String(),
		prefix + concurrencyConfigurationKey:      defaults.Concurrency,
	}
}

// Sanitize trims values and restores defaults for blank or non-positive settings.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.RootDirectory = strings.TrimSpace(configuration.RootDirectory)
	if len(sanitized.RootDirectory) == 0 {
		sanitized.RootDirectory = defaults.RootDirectory
	}
	sanitized.ManifestFileName = strings.TrimSpace(configuration.ManifestFileName)
	if len(sanitized.ManifestFileName) == 0 {
		sanitized.ManifestFileName = defaults.ManifestFileName
	}
	sanitized.Provider = normalizeProviderName(configuration.Provider)
	if len(sanitized.Provider) == 0 {
		sanitized.Provider = defaults.Provider
	}
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaults.RemoteName
	}
	if sanitized.OperationTimeout < 0 {
		sanitized.OperationTimeout = 0
	}
	if sanitized.LockTimeout < 0 {
		sanitized.LockTimeout = 0
	}
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaults.Concurrency
	}
	return sanitized
}

// Settings returns the engine settings carried by the configuration.
func (configuration Configuration) Settings() Settings {
	return Settings{
		RemoteName:       configuration.RemoteName,
		OperationTimeout: configuration.OperationTimeout,
		Concurrency:      configuration.Concurrency,
	}
}

func normalizeProviderName(providerName string) string {
	normalized := strings.ToLower(strings.TrimSpace(providerName))
	if normalized == providerEmbeddedAliasConstant {
		return ProviderEmbedded
	}
	return normalized
}
