package classifier

import (
	"fmt"

	"github.com/studioph/StaticPatcher/internal/category"
	"github.com/studioph/StaticPatcher/internal/record"
)

// Strategy identifies which matching technique resolved a record.
type Strategy int

const (
	// StrategyNone means no strategy matched and the record is Unknown.
	StrategyNone Strategy = iota
	// StrategyMembership matched the record's ID against a category's members.
	StrategyMembership
	// StrategyKeyword matched one of the record's keywords.
	StrategyKeyword
	// StrategyName matched the record's name against a category's name hints.
	StrategyName
	// StrategyLocation resolved a container through its linked location.
	StrategyLocation
)

// cascade is the evaluation order tried against each category.
var cascade = [...]Strategy{StrategyMembership, StrategyKeyword, StrategyName}

var strategyNames = map[Strategy]string{
	StrategyNone:       "none",
	StrategyMembership: "membership",
	StrategyKeyword:    "keyword",
	StrategyName:       "name",
	StrategyLocation:   "location",
}

// String returns the lower-case strategy name.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	for strategy, name := range strategyNames {
		if name == string(text) {
			*s = strategy
			return nil
		}
	}
	return fmt.Errorf("unknown strategy %q", text)
}

// matches tests a single cascade strategy of c against r.
func (s Strategy) matches(c *category.Category, r record.Record) bool {
	switch s {
	case StrategyMembership:
		return c.HasMember(r.ID())
	case StrategyKeyword:
		return c.HasAnyKeyword(r.Keywords())
	case StrategyName:
		return c.MatchesName(r.Name())
	default:
		return false
	}
}

// Resolution is a classification result together with the strategy that
// produced it.
type Resolution struct {
	Category *category.Category
	Strategy Strategy
}
