package main

import (
	"context"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/reconcile"
	"github.com/sells-group/contact-extractor/internal/store"
)

// initStore opens the configured store and runs migrations.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	return store.Open(ctx, c.Store)
}

// loadRuleset builds validation rules from the defaults, the optional rules
// file and the mobile prefix override.
func loadRuleset(c *config.Config) (*reconcile.Ruleset, error) {
	rules := reconcile.DefaultRules()
	if c.Rules.File != "" {
		var err error
		rules, err = reconcile.LoadRules(c.Rules.File)
		if err != nil {
			return nil, err
		}
	}
	if c.Rules.RequireMobilePrefix != "" {
		rules.RequireMobilePrefix = c.Rules.RequireMobilePrefix
	}
	return rules.Compile()
}
