package deletion

import "fmt"

// Strategy is the per-field policy applied to a user-referencing field when
// the referenced account is erased.
type Strategy string

const (
	// StrategyDelete removes the whole containing document.
	StrategyDelete Strategy = "delete"
	// StrategyAnonymize overwrites the field with AnonymizedValue.
	StrategyAnonymize Strategy = "anonymize"
	// StrategyReassign transfers the field to another owner via a
	// ReassignPolicy collaborator.
	StrategyReassign Strategy = "reassign"
	// StrategyPreserve leaves field and document untouched.
	StrategyPreserve Strategy = "preserve"
)

// AnonymizedValue is the sentinel written into anonymized fields.
const AnonymizedValue = "deleted-user"

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyDelete, StrategyAnonymize, StrategyReassign, StrategyPreserve:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown deletion strategy: %q", s)
}
