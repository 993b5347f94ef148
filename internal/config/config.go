// Package config loads the manager's configuration once at process start
// so it can be passed explicitly to the synchronizer.
package config

import (
	"fmt"
	"os"
	"strconv"

	"go.yaml.in/yaml/v3"

	"github.com/davehawkins/fleet-dns-manager/internal/arn"
	"github.com/davehawkins/fleet-dns-manager/internal/dns"
)

// Settings is the optional YAML settings file. It carries the DNS
// provider selection, record policy knobs, and provider-specific
// connection settings.
type Settings struct {
	Provider       string            `yaml:"provider"`
	RecordTTL      int64             `yaml:"record_ttl"`
	DedupeOnLaunch bool              `yaml:"dedupe_on_launch"`
	StrictRemove   bool              `yaml:"strict_remove"`
	Settings       map[string]string `yaml:"settings"`
}

// Config is the fully resolved configuration.
type Config struct {
	ZoneID     string // DNS zone identifier
	HostRecord string // fully-qualified record name, trailing-dot form
	GroupName  string // autoscaling group name

	Provider  string
	RecordTTL int64

	// DedupeOnLaunch suppresses duplicate address insertion when the
	// same launch event is processed twice.
	DedupeOnLaunch bool
	// StrictRemove surfaces a terminate-time removal that found no
	// matching address as an error instead of a logged no-op.
	StrictRemove bool

	ProviderSettings map[string]string
}

// Load reads configuration from the environment plus the optional
// settings file at FLEET_DNS_SETTINGS_PATH (default
// "configs/fleet-dns.yaml"). Required environment variables: ZONE_ID,
// HOSTRECORD, and AUTOSCALING_GROUP_NAME or AUTOSCALING_GROUP_ARN.
func Load() (*Config, error) {
	path := os.Getenv("FLEET_DNS_SETTINGS_PATH")
	if path == "" {
		path = "configs/fleet-dns.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit settings file path. A missing
// settings file is not an error; the file is optional.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{
		Provider:  "route53",
		RecordTTL: 300,
	}

	if data, err := os.ReadFile(path); err == nil {
		var s Settings
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
		}
		if s.Provider != "" {
			cfg.Provider = s.Provider
		}
		if s.RecordTTL != 0 {
			cfg.RecordTTL = s.RecordTTL
		}
		cfg.DedupeOnLaunch = s.DedupeOnLaunch
		cfg.StrictRemove = s.StrictRemove
		cfg.ProviderSettings = s.Settings

		// Expand ${ENV_VAR} references in setting values.
		for k, v := range cfg.ProviderSettings {
			cfg.ProviderSettings[k] = os.ExpandEnv(v)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	cfg.ZoneID = os.Getenv("ZONE_ID")
	if cfg.ZoneID == "" {
		return nil, fmt.Errorf("config: missing required environment variable ZONE_ID")
	}

	cfg.HostRecord = os.Getenv("HOSTRECORD")
	if cfg.HostRecord == "" {
		return nil, fmt.Errorf("config: missing required environment variable HOSTRECORD")
	}
	cfg.HostRecord = dns.Fqdn(cfg.HostRecord)

	cfg.GroupName = os.Getenv("AUTOSCALING_GROUP_NAME")
	if cfg.GroupName == "" {
		// The autoscaling API wants the group name; when only the ARN
		// is configured, the name is its final segment.
		if groupARN := os.Getenv("AUTOSCALING_GROUP_ARN"); groupARN != "" {
			cfg.GroupName = arn.Parse(groupARN).AutoScaleGroupName()
		}
	}
	if cfg.GroupName == "" {
		return nil, fmt.Errorf("config: set AUTOSCALING_GROUP_NAME or AUTOSCALING_GROUP_ARN")
	}

	if v := os.Getenv("RECORD_TTL"); v != "" {
		ttl, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid RECORD_TTL %q: %w", v, err)
		}
		cfg.RecordTTL = ttl
	}

	return cfg, nil
}
