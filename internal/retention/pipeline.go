// Package retention decides which backups to keep and which to delete.
//
// A Set holds the backups of one logical group in timestamp order. A Pipeline
// runs strategies over it one after another. Each strategy can only claim
// entries that are still unset, so earlier strategies take precedence.
package retention

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// StrategyResult is the outcome of one strategy in a pipeline run
type StrategyResult struct {
	Strategy string
	Changed  *Set
}

// Pipeline is an ordered list of strategies
type Pipeline []Strategy

// DefaultPipeline keeps the last 7 backups and the last backup of each of the
// last 12 months, and deletes everything else.
func DefaultPipeline() Pipeline {
	return Pipeline{
		LastN{N: 7},
		LastOfNMonths{N: 12},
		DeleteUnset{},
	}
}

// Apply runs every strategy in order against the set
func (p Pipeline) Apply(s *Set) []StrategyResult {
	results := make([]StrategyResult, 0, len(p))
	for _, strategy := range p {
		changed := strategy.Apply(s)
		slog.Debug("applied retention strategy",
			"strategy", strategy.Name(),
			"changed", changed.Len(),
		)
		results = append(results, StrategyResult{
			Strategy: strategy.Name(),
			Changed:  changed,
		})
	}
	return results
}

// Names returns the textual form of each strategy
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name()
	}
	return names
}

func (p Pipeline) String() string {
	return strings.Join(p.Names(), ", ")
}

// ParsePipeline parses a list of strategy expressions
func ParsePipeline(exprs []string) (Pipeline, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("policy must contain at least one strategy")
	}

	p := make(Pipeline, 0, len(exprs))
	for _, expr := range exprs {
		s, err := ParseStrategy(expr)
		if err != nil {
			return nil, err
		}
		p = append(p, s)
	}
	return p, nil
}

// ParseStrategy parses a strategy expression such as "last-n=7" or "delete-unset"
func ParseStrategy(expr string) (Strategy, error) {
	name, value, hasValue := strings.Cut(strings.TrimSpace(expr), "=")
	name = strings.ToLower(strings.TrimSpace(name))

	switch name {
	case "keep-everything", "delete-everything", "delete-unset":
		if hasValue {
			return nil, fmt.Errorf("strategy %q does not take a value", name)
		}
	case "last-n", "last-of-n-months", "day-of-month":
		if !hasValue {
			return nil, fmt.Errorf("strategy %q requires a value (e.g. %s=7)", name, name)
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", expr)
	}

	switch name {
	case "keep-everything":
		return KeepEverything{}, nil
	case "delete-everything":
		return DeleteEverything{}, nil
	case "delete-unset":
		return DeleteUnset{}, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid value for strategy %q: %w", name, err)
	}

	switch name {
	case "last-n":
		if n < 0 {
			return nil, fmt.Errorf("strategy %q must not be negative, got %d", name, n)
		}
		return LastN{N: n}, nil
	case "last-of-n-months":
		if n < 0 {
			return nil, fmt.Errorf("strategy %q must not be negative, got %d", name, n)
		}
		return LastOfNMonths{N: n}, nil
	default:
		if n < 1 || n > 31 {
			return nil, fmt.Errorf("strategy %q needs a day between 1 and 31, got %d", name, n)
		}
		return DayOfMonth{Day: n}, nil
	}
}
