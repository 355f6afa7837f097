package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks a loaded configuration for values the rest of the program
// cannot work with.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateParser,
		validateExclude,
		validateScan,
		validateStore,
		validateObservability,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateParser(cfg *Config) error {
	switch cfg.Parser.Codegen {
	case "source", "esbuild":
	default:
		return fmt.Errorf("parser.codegen must be one of: source, esbuild; got %q", cfg.Parser.Codegen)
	}
	if err := validateSourceType("parser.source_type", cfg.Parser.SourceType); err != nil {
		return err
	}
	for i, rule := range cfg.Parser.Rules {
		ref := fmt.Sprintf("parser.rules[%d]", i)
		if rule.Pattern == "" {
			return fmt.Errorf("%s.pattern must not be empty", ref)
		}
		if _, err := glob.Compile(rule.Pattern, '/'); err != nil {
			return fmt.Errorf("%s.pattern %q is invalid: %w", ref, rule.Pattern, err)
		}
		if rule.SourceType != "" {
			if err := validateSourceType(ref+".source_type", rule.SourceType); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateSourceType(field, value string) error {
	switch value {
	case "module", "script", "unambiguous":
		return nil
	default:
		return fmt.Errorf("%s must be one of: module, script, unambiguous; got %q", field, value)
	}
}

func validateExclude(cfg *Config) error {
	for _, pattern := range append(append([]string(nil), cfg.Exclude.Dirs...), cfg.Exclude.Files...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude pattern %q is invalid: %w", pattern, err)
		}
	}
	return nil
}

func validateScan(cfg *Config) error {
	if cfg.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be >= 1, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.RateLimit < 0 {
		return fmt.Errorf("scan.rate_limit must be >= 0, got %v", cfg.Scan.RateLimit)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateStore(cfg *Config) error {
	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store.path must not be empty when the store is enabled")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Enabled && !strings.Contains(cfg.Observability.Address, ":") {
		return fmt.Errorf("observability.address must be host:port, got %q", cfg.Observability.Address)
	}
	return nil
}
