package core

import (
	"fmt"
	"strings"
	"time"
)

// TierOption maps a priced service level to its payment link.
type TierOption struct {
	Price       int    `koanf:"price" mapstructure:"price"`
	PaymentLink string `koanf:"payment_link" mapstructure:"payment_link"`
}

type DispatchConfig struct {
	BatchSize      int           `koanf:"batch_size" mapstructure:"batch_size"`
	MaxAttempts    int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`

	// OperatorID is the single privileged identity. Operator events
	// from any other actor are rejected without mutating state.
	OperatorID string `koanf:"operator_id" mapstructure:"operator_id"`

	// SkipEmailStep disables the optional email step between operator
	// approval and delivery; approval then moves the order straight to
	// AWAITING_DELIVERY. The zero value keeps the step enabled so the
	// toggle survives layered config merges.
	SkipEmailStep bool `koanf:"skip_email_step" mapstructure:"skip_email_step"`

	Tiers []TierOption `koanf:"tiers" mapstructure:"tiers"`

	// EmailDenyList holds misspelled mail-provider fragments. A domain
	// containing any entry is treated as a typo even when syntactically
	// well formed. Substring match, advisory only.
	EmailDenyList []string `koanf:"email_deny_list" mapstructure:"email_deny_list"`

	Dispatch DispatchConfig `koanf:"dispatch" mapstructure:"dispatch"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "orderflow",
		Tiers: []TierOption{
			{Price: 20, PaymentLink: "https://rzp.io/r/0YOfrpS"},
			{Price: 30, PaymentLink: "https://rzp.io/r/NTJ69QRD"},
			{Price: 50, PaymentLink: "https://rzp.io/r/rSAe7dZ"},
		},
		EmailDenyList: []string{
			"gmial.com",
			"gamil.com",
			"gmai.com",
			"gmil.com",
			"hotmial.com",
			"hotmal.com",
			"yahooo.com",
			"yaho.com",
			"outlok.com",
		},
		Dispatch: DispatchConfig{
			BatchSize:      50,
			MaxAttempts:    5,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     5 * time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("core: at least one tier is required")
	}
	seen := make(map[int]struct{}, len(c.Tiers))
	for _, tier := range c.Tiers {
		if tier.Price <= 0 {
			return fmt.Errorf("core: tier price must be positive, got %d", tier.Price)
		}
		if strings.TrimSpace(tier.PaymentLink) == "" {
			return fmt.Errorf("core: tier %d is missing a payment link", tier.Price)
		}
		if _, dup := seen[tier.Price]; dup {
			return fmt.Errorf("core: duplicate tier price %d", tier.Price)
		}
		seen[tier.Price] = struct{}{}
	}
	return nil
}

// EmailCaptureEnabled reports whether approval routes through the
// optional email step.
func (c Config) EmailCaptureEnabled() bool {
	return !c.SkipEmailStep
}

// Tier returns the configured tier for a price.
func (c Config) Tier(price int) (TierOption, bool) {
	for _, tier := range c.Tiers {
		if tier.Price == price {
			return tier, true
		}
	}
	return TierOption{}, false
}

// WithDefaults fills zero or negative tuning fields from
// DefaultConfig().Dispatch.
func (d DispatchConfig) WithDefaults() DispatchConfig {
	defaults := DefaultConfig().Dispatch
	if d.BatchSize <= 0 {
		d.BatchSize = defaults.BatchSize
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaults.MaxAttempts
	}
	if d.InitialBackoff <= 0 {
		d.InitialBackoff = defaults.InitialBackoff
	}
	if d.MaxBackoff <= 0 {
		d.MaxBackoff = defaults.MaxBackoff
	}
	return d
}
