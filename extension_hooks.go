package orderflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-orderflow/core"
)

// TierPack contributes additional pricing tiers. Downstream
// deployments register packs at composition time and apply them onto
// the base config before building the service.
type TierPack struct {
	Name  string
	Tiers []core.TierOption
}

// EmailDenyPack contributes misspelled-domain fragments to the email
// policy deny list.
type EmailDenyPack struct {
	Name      string
	Fragments []string
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	tierPacks map[string]TierPack
	denyPacks map[string]EmailDenyPack
	bundles   map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		tierPacks: map[string]TierPack{},
		denyPacks: map[string]EmailDenyPack{},
		bundles:   map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterTierPack(pack TierPack) error {
	if h == nil {
		return fmt.Errorf("orderflow: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("orderflow: tier pack name is required")
	}
	if len(pack.Tiers) == 0 {
		return fmt.Errorf("orderflow: tier pack %q has no tiers", name)
	}
	for _, tier := range pack.Tiers {
		if tier.Price <= 0 {
			return fmt.Errorf("orderflow: tier pack %q has non-positive price %d", name, tier.Price)
		}
	}

	normalized := TierPack{
		Name:  name,
		Tiers: append([]core.TierOption(nil), pack.Tiers...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.tierPacks[name]; exists {
		return fmt.Errorf("orderflow: tier pack %q already registered", name)
	}
	h.tierPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterEmailDenyPack(pack EmailDenyPack) error {
	if h == nil {
		return fmt.Errorf("orderflow: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("orderflow: email deny pack name is required")
	}
	fragments := make([]string, 0, len(pack.Fragments))
	for _, fragment := range pack.Fragments {
		fragment = strings.ToLower(strings.TrimSpace(fragment))
		if fragment == "" {
			continue
		}
		fragments = append(fragments, fragment)
	}
	if len(fragments) == 0 {
		return fmt.Errorf("orderflow: email deny pack %q has no fragments", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.denyPacks[name]; exists {
		return fmt.Errorf("orderflow: email deny pack %q already registered", name)
	}
	h.denyPacks[name] = EmailDenyPack{Name: name, Fragments: fragments}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("orderflow: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("orderflow: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("orderflow: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("orderflow: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyToConfig layers registered packs onto cfg. Tiers merge in pack
// name order with duplicate prices skipped; deny fragments append
// without duplicates.
func (h *ExtensionHooks) ApplyToConfig(cfg core.Config) core.Config {
	if h == nil {
		return cfg
	}

	seenPrices := make(map[int]struct{}, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		seenPrices[tier.Price] = struct{}{}
	}
	for _, pack := range h.TierPacks() {
		for _, tier := range pack.Tiers {
			if _, exists := seenPrices[tier.Price]; exists {
				continue
			}
			seenPrices[tier.Price] = struct{}{}
			cfg.Tiers = append(cfg.Tiers, tier)
		}
	}

	seenFragments := make(map[string]struct{}, len(cfg.EmailDenyList))
	for _, fragment := range cfg.EmailDenyList {
		seenFragments[strings.ToLower(fragment)] = struct{}{}
	}
	for _, fragment := range h.DenyFragments() {
		if _, exists := seenFragments[fragment]; exists {
			continue
		}
		seenFragments[fragment] = struct{}{}
		cfg.EmailDenyList = append(cfg.EmailDenyList, fragment)
	}
	return cfg
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("orderflow: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) TierPacks() []TierPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.tierPacks))
	for name := range h.tierPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TierPack, 0, len(names))
	for _, name := range names {
		pack := h.tierPacks[name]
		out = append(out, TierPack{
			Name:  pack.Name,
			Tiers: append([]core.TierOption(nil), pack.Tiers...),
		})
	}
	return out
}

func (h *ExtensionHooks) DenyFragments() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.denyPacks))
	for name := range h.denyPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []string{}
	for _, name := range names {
		out = append(out, h.denyPacks[name].Fragments...)
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
