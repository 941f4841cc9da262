package config

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// getConfigDir returns the config directory path.
// Uses DBSPACES_CONFIG_DIR env var if set, otherwise defaults to ~/.dbspaces.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("DBSPACES_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dbspaces")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return getConfigDir()
}

// FilePath returns the default config file path.
func FilePath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// JournalPath returns the path of the operation journal database.
func JournalPath() string {
	return filepath.Join(getConfigDir(), "journal.db")
}

// LogPath returns the log file path.
// Uses DBSPACES_LOG env var if set, otherwise defaults to config_dir/dbspaces.log.
func LogPath() string {
	if envPath := os.Getenv("DBSPACES_LOG"); envPath != "" {
		return envPath
	}
	return filepath.Join(getConfigDir(), "dbspaces.log")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// ServerName returns the administered server's identifier.
// DBSPACES_SERVER takes precedence over INFORMIXSERVER.
func ServerName() string {
	if s := os.Getenv("DBSPACES_SERVER"); s != "" {
		return s
	}
	return os.Getenv("INFORMIXSERVER")
}

// Config is the recognized key/value surface of the tool. Every field has a
// built-in default used when the config file is absent or unreadable.
type Config struct {
	SymlinkPath    string `yaml:"symlink_path"`     // directory holding chunk symlinks
	SymlinkSubPath string `yaml:"symlink_sub_path"` // optional subdirectory under symlink_path
	PrimaryPath    string `yaml:"primary_path"`     // top directory for primary raw files
	PrimarySubPath string `yaml:"primary_sub_path"` // subdirectory under primary_path
	MirrorPath     string `yaml:"mirror_path"`      // top directory for mirror raw files
	MirrorSubPath  string `yaml:"mirror_sub_path"`  // subdirectory under mirror_path
	ChunkDecimals  int    `yaml:"chunk_decimals"`   // zero-pad width of symlink indexes
	RawDecimals    int    `yaml:"raw_decimals"`     // zero-pad width of raw file sequence numbers
	ChunkSizeKB    int64  `yaml:"chunk_size"`       // default chunk size in KB
	DataPageSize   int    `yaml:"data_page_size"`   // data page size in KB
	BlobPageSize   int    `yaml:"blob_page_size"`   // blob page size in KB
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		SymlinkPath:    "/opt/dbspaces/links",
		SymlinkSubPath: "",
		PrimaryPath:    "/opt/dbspaces/primary",
		PrimarySubPath: "files",
		MirrorPath:     "/opt/dbspaces/mirror",
		MirrorSubPath:  "files",
		ChunkDecimals:  3,
		RawDecimals:    5,
		ChunkSizeKB:    2048000,
		DataPageSize:   2,
		BlobPageSize:   6,
	}
}

// ApplyDefaults fills zero-value fields with their defaults.
func (cfg *Config) ApplyDefaults() {
	def := Default()
	if cfg.SymlinkPath == "" {
		cfg.SymlinkPath = def.SymlinkPath
	}
	if cfg.PrimaryPath == "" {
		cfg.PrimaryPath = def.PrimaryPath
	}
	if cfg.PrimarySubPath == "" {
		cfg.PrimarySubPath = def.PrimarySubPath
	}
	if cfg.MirrorPath == "" {
		cfg.MirrorPath = def.MirrorPath
	}
	if cfg.MirrorSubPath == "" {
		cfg.MirrorSubPath = def.MirrorSubPath
	}
	if cfg.ChunkDecimals == 0 {
		cfg.ChunkDecimals = def.ChunkDecimals
	}
	if cfg.RawDecimals == 0 {
		cfg.RawDecimals = def.RawDecimals
	}
	if cfg.ChunkSizeKB == 0 {
		cfg.ChunkSizeKB = def.ChunkSizeKB
	}
	if cfg.DataPageSize == 0 {
		cfg.DataPageSize = def.DataPageSize
	}
	if cfg.BlobPageSize == 0 {
		cfg.BlobPageSize = def.BlobPageSize
	}
}

// SymlinkDir returns the effective symlink directory.
func (cfg *Config) SymlinkDir() string {
	if cfg.SymlinkSubPath == "" {
		return cfg.SymlinkPath
	}
	return filepath.Join(cfg.SymlinkPath, cfg.SymlinkSubPath)
}

// PrimaryDir returns the effective primary raw-file directory.
func (cfg *Config) PrimaryDir() string {
	if cfg.PrimarySubPath == "" {
		return cfg.PrimaryPath
	}
	return filepath.Join(cfg.PrimaryPath, cfg.PrimarySubPath)
}

// MirrorDir returns the effective mirror raw-file directory.
func (cfg *Config) MirrorDir() string {
	if cfg.MirrorSubPath == "" {
		return cfg.MirrorPath
	}
	return filepath.Join(cfg.MirrorPath, cfg.MirrorSubPath)
}

// Load reads the config from path. An absent or unreadable file yields the
// built-in defaults; a file that exists but fails to parse is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("config file unreadable, using defaults")
		}
		return Default(), nil
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save writes the config to the default config file path.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	header := []byte("# dbspaces settings\n# See: dbspaces --help\n\n")
	return os.WriteFile(FilePath(), append(header, data...), 0600)
}

// NormalizeServer strips the shared-memory connection suffix from a server
// identifier, so js_server and js_server_shm compare equal.
func NormalizeServer(server string) string {
	return strings.TrimSuffix(server, "_shm")
}
