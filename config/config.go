package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/banksim/internal/domain"
)

const (
	defaultBaseURL        = "http://localhost:8080/api"
	defaultPollInterval   = 5 * time.Second
	defaultTickInterval   = 500 * time.Millisecond
	defaultRequestTimeout = 15 * time.Second
	defaultStateDir       = "./state"
	defaultMaxFunding     = "1000000"
)

// Config is the resolved runtime configuration.
type Config struct {
	BaseURL        string
	Token          string
	Slot           int
	ClientID       int64
	FundsPolicy    domain.ClientFundsPolicy
	PollInterval   time.Duration
	TickInterval   time.Duration
	RequestTimeout time.Duration
	// CacheTTL is how old cached data may get before the dashboard flags it.
	CacheTTL   time.Duration
	StateDir   string
	JournalDir string
	WebAddr    string
	LogLevel   string
	// MaxFunding caps a single down payment top-up.
	MaxFunding decimal.Decimal

	// Setup requests the interactive configuration wizard.
	Setup bool
	// Args are the positional command line arguments (the command to run).
	Args []string
}

// ConfigTmp is the YAML representation of Config.
type ConfigTmp struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token,omitempty"`
	Slot           int           `yaml:"slot"`
	ClientID       int64         `yaml:"client_id,omitempty"`
	FundsPolicy    string        `yaml:"funds_policy,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	TickInterval   time.Duration `yaml:"tick_interval,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	CacheTTL       time.Duration `yaml:"cache_ttl,omitempty"`
	StateDir       string        `yaml:"state_dir,omitempty"`
	JournalDir     string        `yaml:"journal_dir,omitempty"`
	WebAddr        string        `yaml:"web_addr,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`
	MaxFunding     string        `yaml:"max_funding,omitempty"`
}

// envOverrides are applied last. Zero values mean "not set".
type envOverrides struct {
	BaseURL     string        `env:"BANKSIM_BASE_URL"`
	Token       string        `env:"BANKSIM_TOKEN"`
	Slot        int           `env:"BANKSIM_SLOT"`
	StateDir    string        `env:"BANKSIM_STATE_DIR"`
	FundsPolicy string        `env:"BANKSIM_FUNDS_POLICY"`
	WebAddr     string        `env:"BANKSIM_WEB_ADDR"`
	LogLevel    string        `env:"BANKSIM_LOG_LEVEL"`
	Poll        time.Duration `env:"BANKSIM_POLL_INTERVAL"`
}

// Get resolves configuration from the process arguments and environment.
func Get() (Config, error) {
	return Load(os.Args[1:])
}

// Load resolves configuration from args: a YAML file when --config is given,
// otherwise flags. Environment variables override both.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("banksim", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	setup := fs.Bool("setup", false, "run the interactive configuration wizard")
	baseURL := fs.String("base-url", defaultBaseURL, "backend API base URL")
	token := fs.String("token", "", "bearer token (overrides the saved session)")
	slot := fs.Int("slot", 0, "game slot (0 uses the saved session)")
	client := fs.Int64("client", 0, "selected client id")
	policy := fs.String("funds-policy", string(domain.FundsCheckingAndSavings), "client funds policy: checking or checking_and_savings")
	poll := fs.Duration("poll-interval", defaultPollInterval, "backend poll interval")
	tick := fs.Duration("tick-interval", defaultTickInterval, "game clock refresh interval")
	timeout := fs.Duration("request-timeout", defaultRequestTimeout, "HTTP request timeout")
	stateDir := fs.String("state-dir", defaultStateDir, "directory for session and journal files")
	webAddr := fs.String("web-addr", "", "serve the dashboard over HTTP on this address")
	logLevel := fs.String("log-level", "info", "log level: debug or info")
	maxFunding := fs.String("max-funding", defaultMaxFunding, "largest down payment top-up allowed")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	tmp := ConfigTmp{
		BaseURL:        *baseURL,
		Token:          *token,
		Slot:           *slot,
		ClientID:       *client,
		FundsPolicy:    *policy,
		PollInterval:   *poll,
		TickInterval:   *tick,
		RequestTimeout: *timeout,
		StateDir:       *stateDir,
		WebAddr:        *webAddr,
		LogLevel:       *logLevel,
		MaxFunding:     *maxFunding,
	}

	if *configPath != "" {
		fromFile, err := readYaml(*configPath)
		if err != nil {
			return Config{}, err
		}
		tmp = fromFile
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	applyEnv(&tmp, overrides)

	cfg, err := tmp.resolve()
	if err != nil {
		return Config{}, err
	}
	cfg.Setup = *setup
	cfg.Args = fs.Args()

	return cfg, nil
}

func readYaml(path string) (ConfigTmp, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return ConfigTmp{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return ConfigTmp{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}
	return tmp, nil
}

func applyEnv(tmp *ConfigTmp, o envOverrides) {
	if o.BaseURL != "" {
		tmp.BaseURL = o.BaseURL
	}
	if o.Token != "" {
		tmp.Token = o.Token
	}
	if o.Slot != 0 {
		tmp.Slot = o.Slot
	}
	if o.StateDir != "" {
		tmp.StateDir = o.StateDir
	}
	if o.FundsPolicy != "" {
		tmp.FundsPolicy = o.FundsPolicy
	}
	if o.WebAddr != "" {
		tmp.WebAddr = o.WebAddr
	}
	if o.LogLevel != "" {
		tmp.LogLevel = o.LogLevel
	}
	if o.Poll != 0 {
		tmp.PollInterval = o.Poll
	}
}

// resolve validates raw values and fills defaults.
func (c ConfigTmp) resolve() (Config, error) {
	policy, err := domain.ParseClientFundsPolicy(c.FundsPolicy)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'funds_policy' param: %w", err)
	}

	if c.Slot < 0 {
		return Config{}, fmt.Errorf("incorrect 'slot' param: %d", c.Slot)
	}

	maxFunding := decimal.RequireFromString(defaultMaxFunding)
	if c.MaxFunding != "" {
		maxFunding, err = decimal.NewFromString(c.MaxFunding)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'max_funding' param (must be a decimal), error: %w", err)
		}
		if !maxFunding.IsPositive() {
			return Config{}, fmt.Errorf("incorrect 'max_funding' param: must be positive, got %s", maxFunding)
		}
	}

	logLevel := strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch logLevel {
	case "":
		logLevel = "info"
	case "debug", "info":
	default:
		return Config{}, fmt.Errorf("incorrect 'log_level' param: %q", c.LogLevel)
	}

	cfg := Config{
		BaseURL:        strings.TrimRight(c.BaseURL, "/"),
		Token:          c.Token,
		Slot:           c.Slot,
		ClientID:       c.ClientID,
		FundsPolicy:    policy,
		PollInterval:   orDefault(c.PollInterval, defaultPollInterval),
		TickInterval:   orDefault(c.TickInterval, defaultTickInterval),
		RequestTimeout: orDefault(c.RequestTimeout, defaultRequestTimeout),
		StateDir:       c.StateDir,
		JournalDir:     c.JournalDir,
		WebAddr:        c.WebAddr,
		LogLevel:       logLevel,
		MaxFunding:     maxFunding,
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = cfg.StateDir + "/journal"
	}
	cfg.CacheTTL = orDefault(c.CacheTTL, 2*cfg.PollInterval)

	return cfg, nil
}

// Tmp converts a Config back into its YAML form.
func (c Config) Tmp() ConfigTmp {
	return ConfigTmp{
		BaseURL:        c.BaseURL,
		Token:          c.Token,
		Slot:           c.Slot,
		ClientID:       c.ClientID,
		FundsPolicy:    string(c.FundsPolicy),
		PollInterval:   c.PollInterval,
		TickInterval:   c.TickInterval,
		RequestTimeout: c.RequestTimeout,
		CacheTTL:       c.CacheTTL,
		StateDir:       c.StateDir,
		JournalDir:     c.JournalDir,
		WebAddr:        c.WebAddr,
		LogLevel:       c.LogLevel,
		MaxFunding:     c.MaxFunding.String(),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
