// Package config loads ghostcanvas settings from a TOML file.
//
// Every field has a default, so an empty or missing file is valid:
//
//	[protocol]
//	request_timeout = "500ms"
//	rebroadcast_delay = "50ms"
//
//	[sync]
//	window = "100ms"
//	full_reset_threshold = 20
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[vfs]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//	project = "landing-page"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/filesync"
	"github.com/matzehuels/ghostcanvas/pkg/instrument"
	"github.com/matzehuels/ghostcanvas/pkg/materialize"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
)

const appName = "ghostcanvas"

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// VFS backends.
const (
	VFSDir   = "dir"
	VFSMongo = "mongo"
)

// Config is the full settings tree.
type Config struct {
	Protocol    Protocol    `toml:"protocol"`
	Sync        Sync        `toml:"sync"`
	Instrument  Instrument  `toml:"instrument"`
	Cache       Cache       `toml:"cache"`
	VFS         VFS         `toml:"vfs"`
	Server      Server      `toml:"server"`
	Materialize Materialize `toml:"materialize"`
}

type Protocol struct {
	RequestTimeout   time.Duration `toml:"request_timeout"`
	RebroadcastDelay time.Duration `toml:"rebroadcast_delay"`
}

type Sync struct {
	Window             time.Duration `toml:"window"`
	FullResetThreshold int           `toml:"full_reset_threshold"`
}

type Instrument struct {
	Attribute  string   `toml:"attribute"`
	Extensions []string `toml:"extensions"`
}

type Cache struct {
	Backend   string        `toml:"backend"`
	Dir       string        `toml:"dir"`
	RedisAddr string        `toml:"redis_addr"`
	RedisDB   int           `toml:"redis_db"`
	Prefix    string        `toml:"prefix"`
	TTL       time.Duration `toml:"ttl"`
	// PruneSchedule is a cron spec for removing expired file cache entries.
	PruneSchedule string `toml:"prune_schedule"`
}

type VFS struct {
	Backend    string `toml:"backend"`
	Root       string `toml:"root"`
	MongoURI   string `toml:"mongo_uri"`
	MongoDB    string `toml:"mongo_db"`
	Collection string `toml:"collection"`
	Project    string `toml:"project"`
	// Watch feeds on-disk edits made outside ghostcanvas to the frames.
	Watch bool `toml:"watch"`
}

type Server struct {
	Addr string `toml:"addr"`
	// AllowedOrigins restricts which pages may open frame sockets.
	// Empty allows any origin.
	AllowedOrigins []string `toml:"allowed_origins"`
}

type Materialize struct {
	DefaultFile string `toml:"default_file"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Protocol: Protocol{
			RequestTimeout:   protocol.DefaultRequestTimeout,
			RebroadcastDelay: protocol.DefaultRebroadcastDelay,
		},
		Sync: Sync{
			Window:             filesync.DefaultWindow,
			FullResetThreshold: filesync.DefaultFullResetThreshold,
		},
		Instrument: Instrument{Attribute: instrument.DefaultAttribute},
		Cache: Cache{
			Backend:       CacheFile,
			RedisAddr:     "localhost:6379",
			Prefix:        appName + ":",
			TTL:           7 * 24 * time.Hour,
			PruneSchedule: "@hourly",
		},
		VFS: VFS{
			Backend:    VFSDir,
			Root:       ".",
			MongoDB:    appName,
			Collection: "files",
			Watch:      true,
		},
		Server:      Server{Addr: "127.0.0.1:7420"},
		Materialize: Materialize{DefaultFile: materialize.DefaultFile},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/ghostcanvas/config.toml, falling
// back to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads path over the defaults. An empty path loads DefaultPath and
// tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config key %s", undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidInput, format, args...)
	}
	switch {
	case c.Protocol.RequestTimeout <= 0:
		return invalid("protocol.request_timeout must be positive")
	case c.Protocol.RebroadcastDelay <= 0:
		return invalid("protocol.rebroadcast_delay must be positive")
	case c.Sync.Window <= 0:
		return invalid("sync.window must be positive")
	case c.Sync.FullResetThreshold < 1:
		return invalid("sync.full_reset_threshold must be at least 1")
	case !strings.HasPrefix(c.Instrument.Attribute, "data-"):
		return invalid("instrument.attribute %q must be a data- attribute", c.Instrument.Attribute)
	case !strings.HasPrefix(c.Materialize.DefaultFile, "/"):
		return invalid("materialize.default_file %q must be project-absolute", c.Materialize.DefaultFile)
	case c.Server.Addr == "":
		return invalid("server.addr is required")
	}

	switch c.Cache.Backend {
	case CacheFile, CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr is required for the redis backend")
		}
	default:
		return invalid("unknown cache.backend %q", c.Cache.Backend)
	}

	switch c.VFS.Backend {
	case VFSDir:
		if c.VFS.Root == "" {
			return invalid("vfs.root is required for the dir backend")
		}
	case VFSMongo:
		if c.VFS.MongoURI == "" {
			return invalid("vfs.mongo_uri is required for the mongo backend")
		}
		if c.VFS.Project == "" {
			return invalid("vfs.project is required for the mongo backend")
		}
	default:
		return invalid("unknown vfs.backend %q", c.VFS.Backend)
	}
	return nil
}

// ProtocolOptions converts the [protocol] section.
func (c *Config) ProtocolOptions() protocol.Options {
	return protocol.Options{RequestTimeout: c.Protocol.RequestTimeout, RebroadcastDelay: c.Protocol.RebroadcastDelay}
}

// SyncOptions converts the [sync] section.
func (c *Config) SyncOptions() filesync.Options {
	return filesync.Options{Window: c.Sync.Window, FullResetThreshold: c.Sync.FullResetThreshold}
}

// MaterializeOptions converts the [materialize] section.
func (c *Config) MaterializeOptions() materialize.Options {
	return materialize.Options{DefaultFile: c.Materialize.DefaultFile}
}
