package cachectl

import "strings"

// Operation names one of the maintenance operations.
type Operation string

const (
	OpFlush        Operation = "flush"
	OpClearPattern Operation = "clear-pattern"
	OpClearKeys    Operation = "clear-keys"
	OpList         Operation = "list"
)

// Operations lists every operation in display order.
func Operations() []Operation {
	return []Operation{OpFlush, OpClearPattern, OpClearKeys, OpList}
}

// ParseOperation maps a CLI name to an Operation.
func ParseOperation(name string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(name))) {
	case OpFlush, "flush-all":
		return OpFlush, nil
	case OpClearPattern:
		return OpClearPattern, nil
	case OpClearKeys:
		return OpClearKeys, nil
	case OpList, "list-keys":
		return OpList, nil
	default:
		return "", invalidArgf("unknown operation %q", name)
	}
}

// Mutates reports whether op removes keys.
func (op Operation) Mutates() bool {
	return op != OpList
}
