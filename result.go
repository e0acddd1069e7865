package cachectl

// Result summarizes one invocation. It is transient and never persisted.
type Result struct {
	Operation Operation
	Driver    Driver
	Pattern   string
	// Requested is the number of keys passed to ClearKeys, duplicates included.
	Requested int
	// Matched counts keys returned by enumeration, or keys whose existence check succeeded.
	Matched int
	Deleted int
	// Keys holds the matched, existing or listed keys in store order.
	Keys   []string
	DryRun bool
}

// Affected is the count reported to observers.
func (r Result) Affected() int {
	if r.Operation == OpList {
		return r.Matched
	}
	return r.Deleted
}
