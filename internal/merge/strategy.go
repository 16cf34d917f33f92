// Package merge combines candidate results that describe the same album
// into consolidated candidates. Grouping decides which results talk about
// the same album; a merge strategy then decides which fields win.
package merge

import (
	"fmt"
	"strings"
)

// Strategy selects how fields are reconciled when grouped results
// disagree.
type Strategy string

const (
	// StrategyBestConfidence takes the highest-confidence result as the
	// base and fills its missing fields from the others.
	StrategyBestConfidence Strategy = "best_confidence"
	// StrategyPriority takes the result from the highest-priority source
	// as the base and fills its missing fields from the others.
	StrategyPriority Strategy = "priority"
	// StrategyConsensus takes, per field, the value most sources agree
	// on; without sufficient agreement it falls back to best_confidence.
	StrategyConsensus Strategy = "consensus"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyBestConfidence:
		return StrategyBestConfidence, nil
	case StrategyPriority:
		return StrategyPriority, nil
	case StrategyConsensus:
		return StrategyConsensus, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}
