package config

import (
	"dvamodel/internal/engine/parser"
	"dvamodel/internal/shared/util"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

type compiledRule struct {
	rule    ParserRule
	matcher glob.Glob
}

// RuleProvider answers parser.ConfigProvider from the [[parser.rules]]
// table. The first rule whose pattern matches the path relative to the
// project root wins. Paths outside the project root have no configuration.
type RuleProvider struct {
	mu    sync.RWMutex
	root  string
	base  Parser
	rules []compiledRule
}

var _ parser.ConfigProvider = (*RuleProvider)(nil)

func NewRuleProvider(cfg *Config) (*RuleProvider, error) {
	p := &RuleProvider{}
	if err := p.Update(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Update swaps in the rules of cfg, e.g. after a config reload.
func (p *RuleProvider) Update(cfg *Config) error {
	rules := make([]compiledRule, 0, len(cfg.Parser.Rules))
	for i, rule := range cfg.Parser.Rules {
		g, err := glob.Compile(rule.Pattern, '/')
		if err != nil {
			return fmt.Errorf("parser.rules[%d]: %w", i, err)
		}
		rules = append(rules, compiledRule{rule: rule, matcher: g})
	}

	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = root
	p.base = cfg.Parser
	p.rules = rules
	return nil
}

func (p *RuleProvider) ParserConfig(path string) (parser.Options, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rel, ok := p.relative(path)
	if !ok {
		return parser.Options{}, false
	}

	for _, cr := range p.rules {
		if !cr.matcher.Match(rel) {
			continue
		}
		opts := parser.Options{
			Plugins:       append([]string(nil), cr.rule.Plugins...),
			SourceType:    p.base.SourceType,
			ErrorRecovery: p.base.ErrorRecovery,
		}
		if cr.rule.SourceType != "" {
			opts.SourceType = cr.rule.SourceType
		}
		if cr.rule.ErrorRecovery != nil {
			opts.ErrorRecovery = *cr.rule.ErrorRecovery
		}
		return opts, true
	}
	return parser.Options{}, false
}

func (p *RuleProvider) relative(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil {
		return "", false
	}
	rel = util.NormalizePatternPath(rel)
	if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
