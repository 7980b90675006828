package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultServerAddress = "127.0.0.1:8001"
const defaultBackend = "phoebe2"

var defaultBackends = []string{"phoebe2", "phoebe1", "ellc", "jktebop"}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Storage StorageConfig `toml:"storage"`
	Compute ComputeConfig `toml:"compute"`
}

type ServerConfig struct {
	Address string `toml:"address"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type ComputeConfig struct {
	Backend  string   `toml:"backend"`
	Backends []string `toml:"backends"`
	Workers  int      `toml:"workers"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Address: defaultServerAddress,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Compute: ComputeConfig{
			Backend:  defaultBackend,
			Backends: append([]string{}, defaultBackends...),
			Workers:  4,
		},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func (c Config) ServerAddress() string {
	addr := strings.TrimSpace(c.Server.Address)
	if addr == "" {
		return defaultServerAddress
	}
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultServerAddress
	}
	return addr
}

func (c Config) ServerBaseURL() string {
	return "http://" + c.ServerAddress()
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StorageBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if backend == "" {
		return "file"
	}
	return backend
}

// StoragePath resolves the state file location, falling back to the
// backend-appropriate default under the data directory.
func (c Config) StoragePath() (string, error) {
	path := strings.TrimSpace(c.Storage.Path)
	if path != "" {
		return path, nil
	}
	if c.StorageBackend() == "bbolt" {
		return StateDBPath()
	}
	return StatePath()
}

func (c Config) ComputeBackend() string {
	backend := strings.TrimSpace(c.Compute.Backend)
	if backend == "" {
		return defaultBackend
	}
	return backend
}

func (c Config) ComputeBackends() []string {
	backends := normalizedList(c.Compute.Backends)
	if len(backends) == 0 {
		backends = append([]string{}, defaultBackends...)
	}
	return backends
}

func (c Config) WorkerCount() int {
	if c.Compute.Workers <= 0 {
		return 4
	}
	return c.Compute.Workers
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
