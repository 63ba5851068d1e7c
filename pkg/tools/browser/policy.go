package browser

import (
	"fmt"
	"strings"

	"github.com/entrhq/qa-browser/pkg/config"
	"github.com/entrhq/qa-browser/pkg/llm/tokenizer"
	"github.com/entrhq/qa-browser/pkg/logging"
)

// visiblePredicate narrows a selector to elements the annotation pass
// marked as on screen.
const visiblePredicate = "[" + attrVisible + "=true]"

// SelectorPolicy rewrites the selectors an action is allowed to target.
type SelectorPolicy interface {
	Apply(selector string) string
}

// IdentityPolicy matches against the full DOM.
type IdentityPolicy struct{}

// Apply returns selector unchanged.
func (IdentityPolicy) Apply(selector string) string { return selector }

// VisibleOnlyPolicy restricts selectors to visible elements.
type VisibleOnlyPolicy struct{}

// Apply appends the visibility predicate to every selector of a selector
// list, skipping those that already carry it.
func (VisibleOnlyPolicy) Apply(selector string) string {
	parts := splitSelectorList(selector)
	for i, part := range parts {
		if !strings.Contains(part, visiblePredicate) {
			parts[i] = part + visiblePredicate
		}
	}
	return strings.Join(parts, ", ")
}

// splitSelectorList splits a CSS selector list on its top-level commas.
// Commas inside brackets, parentheses or quoted strings do not separate.
func splitSelectorList(selector string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range selector {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(selector[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(selector[start:]))
}

// Variant bundles the strategies that differ between the full and
// visible-only sessions. Everything else is shared.
type Variant struct {
	Name      string
	Policy    SelectorPolicy
	Distiller *ContentDistiller

	// Finishable sessions expose the finish action.
	Finishable bool
}

// VisibleOnly reports whether actions must refresh the annotation markers
// before resolving a selector.
func (v Variant) VisibleOnly() bool {
	return v.Distiller != nil && v.Distiller.visibleOnly
}

// DistillerConfig holds what both distiller variants share.
type DistillerConfig struct {
	Tokenizer *tokenizer.Tokenizer
	MaxTokens int
	Logger    *logging.Logger
}

// FullVariant distils the whole document and targets any element.
func FullVariant(cfg DistillerConfig) Variant {
	return Variant{
		Name:      config.VariantFull,
		Policy:    IdentityPolicy{},
		Distiller: NewContentDistiller(false, cfg),
	}
}

// VisibleOnlyVariant distils and targets only on-screen elements and
// supports finishing the session.
func VisibleOnlyVariant(cfg DistillerConfig) Variant {
	return Variant{
		Name:       config.VariantVisibleOnly,
		Policy:     VisibleOnlyPolicy{},
		Distiller:  NewContentDistiller(true, cfg),
		Finishable: true,
	}
}

// VariantByName returns the variant registered under name.
func VariantByName(name string, cfg DistillerConfig) (Variant, error) {
	switch name {
	case config.VariantFull:
		return FullVariant(cfg), nil
	case config.VariantVisibleOnly:
		return VisibleOnlyVariant(cfg), nil
	default:
		return Variant{}, fmt.Errorf("unknown browser variant %q", name)
	}
}
