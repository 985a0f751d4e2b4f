package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/habhabhabs/aws-inventag/internal/credentials"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
)

// Config is the complete runtime configuration for an inventory run
type Config struct {
	Accounts []credentials.AccountConfig `yaml:"accounts"`
	Regions  []string                    `yaml:"regions"`
	Services []string                    `yaml:"services,omitempty"`

	Discovery DiscoverySettings `yaml:"discovery"`
	State     StateSettings     `yaml:"state"`
	Logging   logger.Config     `yaml:"logging"`

	PolicyFile string `yaml:"policy_file"`
}

// DiscoverySettings controls the concurrency and retry behavior of a run
type DiscoverySettings struct {
	MaxWorkers            int      `yaml:"max_workers"`
	MaxConcurrentAccounts int      `yaml:"max_concurrent_accounts"`
	AccountTimeout        Duration `yaml:"account_timeout"`
	PageCap               int      `yaml:"page_cap"`
	RateLimit             float64  `yaml:"rate_limit"`
	BreakerThreshold      int      `yaml:"breaker_threshold"`
	BreakerCooldown       Duration `yaml:"breaker_cooldown"`
}

// StateSettings controls the snapshot store
type StateSettings struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSnapshots  int    `yaml:"max_snapshots"`
}

// applyDefaults fills unset fields with their documented defaults
func (c *Config) applyDefaults() {
	if c.Discovery.MaxWorkers <= 0 {
		c.Discovery.MaxWorkers = 4
	}
	if c.Discovery.MaxConcurrentAccounts <= 0 {
		c.Discovery.MaxConcurrentAccounts = 4
	}
	if c.Discovery.AccountTimeout <= 0 {
		c.Discovery.AccountTimeout = Duration(30 * time.Minute)
	}
	if c.Discovery.PageCap <= 0 {
		c.Discovery.PageCap = 5
	}
	if c.Discovery.RateLimit <= 0 {
		c.Discovery.RateLimit = 10
	}
	if c.Discovery.BreakerThreshold <= 0 {
		c.Discovery.BreakerThreshold = 5
	}
	if c.Discovery.BreakerCooldown <= 0 {
		c.Discovery.BreakerCooldown = Duration(time.Minute)
	}
	if c.State.Dir == "" {
		c.State.Dir = ".inventag/snapshots"
	}
	if c.State.RetentionDays <= 0 {
		c.State.RetentionDays = 90
	}
	if c.State.MaxSnapshots <= 0 {
		c.State.MaxSnapshots = 50
	}
	if len(c.Regions) == 0 {
		c.Regions = []string{"us-east-1"}
	}
}

// Validate checks constraints that defaults cannot repair
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account must be configured")
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.AccountID == "" {
			return fmt.Errorf("account %q missing account_id", a.Name)
		}
		if seen[a.AccountID] {
			return fmt.Errorf("duplicate account_id %s", a.AccountID)
		}
		seen[a.AccountID] = true
	}
	return nil
}

// Load parses a configuration file, expanding ${ENV_VAR} references
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration bytes
func Parse(data []byte) (*Config, error) {
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Manager manages configuration with hot reload capability
type Manager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
	watcher    *fsnotify.Watcher
	callbacks  []func(*Config)
	stopCh     chan struct{}
	log        logger.Logger
}

// NewManager loads the configuration and starts watching the file for
// changes. A watcher failure degrades to a static configuration.
func NewManager(configPath string) (*Manager, error) {
	configPath = expandPath(configPath)

	m := &Manager{
		configPath: configPath,
		stopCh:     make(chan struct{}),
		log:        logger.Get(),
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	m.config = cfg

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m, nil
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return m, nil
	}
	m.watcher = watcher
	go m.watchChanges()

	return m, nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnReload registers a callback invoked after a successful reload
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Close stops the file watcher
func (m *Manager) Close() {
	close(m.stopCh)
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func (m *Manager) watchChanges() {
	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(m.configPath)
			if err != nil {
				m.log.Warn("config reload failed, keeping previous configuration",
					logger.F("path", m.configPath), logger.F("error", err.Error()))
				continue
			}
			m.mu.Lock()
			m.config = cfg
			callbacks := append([]func(*Config){}, m.callbacks...)
			m.mu.Unlock()
			m.log.Info("configuration reloaded", logger.F("path", m.configPath))
			for _, fn := range callbacks {
				fn(cfg)
			}
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
