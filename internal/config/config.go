// Package config provides installation settings for spincheck.
// It handles reading the tool's own settings from a YAML file, providing
// defaults, and ensuring all required settings are properly set. The
// deployment configuration being validated is loaded separately by the
// bindings package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spincheck/spincheck/internal/filesys"
)

var (
	// ErrInvalidSettings is returned when the settings are invalid.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrNoSettings is returned when the settings file is not found.
	ErrNoSettings = errors.New("settings file not found")
)

const (
	// DefaultConfigDir is where the deployment configuration lives.
	DefaultConfigDir = "/opt/spinnaker/config"
	// ConfigFileName is the fixed name of the deployment configuration file.
	ConfigFileName = "spinnaker_config.cfg"
	// DefaultSettingsPath is the default path for the tool's own settings.
	DefaultSettingsPath = "/etc/spincheck/settings.yaml"
	// DefaultMetadataTimeout bounds each instance-metadata request.
	DefaultMetadataTimeout = 5 * time.Second
	// DefaultDNSTimeout bounds each reachability DNS query.
	DefaultDNSTimeout = 5 * time.Second
)

// Settings holds the tool's installation parameters.
type Settings struct {
	ConfigDir       string        `yaml:"config_dir"       validate:"required"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" validate:"required,min=1s"`
	DNSTimeout      time.Duration `yaml:"dns_timeout"      validate:"required,min=1s"`
	DNSServers      []string      `yaml:"dns_servers"      validate:"dive,hostname_port"`
}

// ConfigFilePath returns the path of the deployment configuration file.
func (s *Settings) ConfigFilePath() string {
	return filepath.Join(s.ConfigDir, ConfigFileName)
}

// Provider defines the interface for loading settings.
type Provider interface {
	Load() (*Settings, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.FS
	path string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a settings provider using the default settings path.
func New() Provider {
	return NewWithPath(filesys.OS(), DefaultSettingsPath)
}

// NewWithPath creates a provider with a specific settings path.
// It allows specifying both the filesystem implementation and the path.
func NewWithPath(fs filesys.FS, path string) Provider {
	return &FSProvider{fs: fs, path: path}
}

// Default returns settings with preset values.
// This is used when no settings file exists.
func Default() *Settings {
	return &Settings{
		ConfigDir:       DefaultConfigDir,
		MetadataTimeout: DefaultMetadataTimeout,
		DNSTimeout:      DefaultDNSTimeout,
	}
}

// Load loads the settings from the configured path.
// A missing file yields the defaults.
func (p *FSProvider) Load() (*Settings, error) {
	s, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoSettings) {
			return Default(), nil
		}
		return nil, err
	}

	if err := validateStruct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	return s, nil
}

func (p *FSProvider) loadAndParse() (*Settings, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSettings
		}
		return nil, fmt.Errorf("opening settings file: %w", err)
	}
	defer f.Close()

	s := Default()
	if err := yaml.NewDecoder(f).Decode(s); err != nil {
		return nil, fmt.Errorf("decoding settings file: %w", err)
	}

	return s, nil
}
