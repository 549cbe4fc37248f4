package dispatch

import "gopkg.in/yaml.v3"

// MountConfig is an optional declarative manifest of handler directories,
// read from YAML (USER_SCRIPT_ROOT still governs the actual resolution
// root; this only tells the host which subdirectories to pre-create and,
// optionally, watch for changes).
type MountConfig struct {
	Mounts []MountEntry `yaml:"mounts"`
}

// MountEntry describes one mounted handler directory.
type MountEntry struct {
	Directory string `yaml:"directory"`
	App       string `yaml:"app"`
	Watch     bool   `yaml:"watch"`
}

// LoadMountConfig parses a YAML mount manifest.
func LoadMountConfig(data []byte) (*MountConfig, error) {
	var cfg MountConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
