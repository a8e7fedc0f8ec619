package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/bitbang/bmp180"
	"github.com/mklimuk/bitbang/softi2c"
)

// Version is injected at build time.
var Version = "dev"

const (
	BackendSim      = "sim"
	BackendPeriph   = "periph"
	BackendGobot    = "gobot"
	BackendMCP2221  = "mcp2221"
	BackendMCP23017 = "mcp23017"
)

const (
	OutputText = "text"
	OutputYAML = "yaml"
)

var ErrInvalid = errors.New("invalid configuration")

type Expander struct {
	Address byte `yaml:"address"`
	Bank    int  `yaml:"bank"`
	Retries int  `yaml:"retries"`
}

type Config struct {
	// Backend selects where the clock and data lines come from.
	Backend string `yaml:"backend"`
	// SCL and SDA name the lines in the backend's own terms: periph pin names, gobot pin
	// ids, MCP2221 GP numbers or MCP23017 pins such as "A0".
	SCL         string        `yaml:"scl"`
	SDA         string        `yaml:"sda"`
	Frequency   string        `yaml:"frequency"`
	AckPolicy   string        `yaml:"ack_policy"`
	RetryLimit  int           `yaml:"retry_limit"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	Interval    time.Duration `yaml:"interval"`
	Output      string        `yaml:"output"`
	// Bus is the hardware controller used by verify and by the mcp23017 backend: "mcp2221"
	// or a periph bus name. verify falls back to the bit-banged lines when it is empty.
	Bus      string   `yaml:"bus"`
	Bridge   int      `yaml:"bridge"`
	Expander Expander `yaml:"expander"`
}

func Default() Config {
	return Config{
		Backend:     BackendSim,
		SCL:         "GPIO3",
		SDA:         "GPIO2",
		Frequency:   softi2c.DefaultFrequency.String(),
		AckPolicy:   bmp180.AckIgnore.String(),
		RetryLimit:  bmp180.DefaultRetryLimit,
		SettleDelay: bmp180.DefaultSettleDelay,
		Interval:    time.Second,
		Output:      OutputText,
		Bridge:      -1,
		Expander: Expander{
			Address: 0x21,
			Retries: 1,
		},
	}
}

// Load reads a YAML file on top of the defaults. A missing path yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("could not read config file: %w", err)
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendPeriph, BackendGobot, BackendMCP2221, BackendMCP23017:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if _, err := c.BusFrequency(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := bmp180.ParseAckPolicy(c.AckPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.RetryLimit < 1 {
		return fmt.Errorf("%w: retry limit must be positive", ErrInvalid)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("%w: negative settle delay", ErrInvalid)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalid)
	}
	if c.Output != OutputText && c.Output != OutputYAML {
		return fmt.Errorf("%w: unknown output %q", ErrInvalid, c.Output)
	}
	return nil
}

func (c Config) BusFrequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(c.Frequency); err != nil {
		return 0, fmt.Errorf("bad frequency %q: %w", c.Frequency, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("bad frequency %q", c.Frequency)
	}
	return f, nil
}

// SequencerOpts translates the configuration into sequencer options. It assumes a
// validated configuration.
func (c Config) SequencerOpts() []bmp180.SequencerOpt {
	policy, _ := bmp180.ParseAckPolicy(c.AckPolicy)
	return []bmp180.SequencerOpt{
		bmp180.WithAckPolicy(policy),
		bmp180.WithRetryLimit(c.RetryLimit),
		bmp180.WithSettleDelay(c.SettleDelay),
	}
}
