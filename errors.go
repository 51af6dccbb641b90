package cbpt

import "fmt"

// ConfigError reports an invalid configuration or input shape. It is always
// returned before any computation starts.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cbpt: invalid %s (%v): %s", e.Param, e.Value, e.Reason)
}

func configErrorf(param string, value any, format string, args ...any) *ConfigError {
	return &ConfigError{Param: param, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// ObservedIteration is the Iteration value of a ComputationError raised while
// scoring the unpermuted labels.
const ObservedIteration = -1

// ComputationError reports a failure inside the scoring/clustering pipeline,
// such as an undefined statistic for an empty group.
type ComputationError struct {
	Op        string
	Iteration int
	Err       error
}

func (e *ComputationError) Error() string {
	if e.Iteration == ObservedIteration {
		return fmt.Sprintf("cbpt: %s (observed labels): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cbpt: %s (permutation %d): %v", e.Op, e.Iteration, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// ResourceError reports that the proximity graph would exceed the configured
// size limit. Retrying with the same inputs cannot succeed.
type ResourceError struct {
	Op    string
	Nodes int
	// Entries is a lower bound on the entries the matrix needs when the
	// neighbor scan stopped early, or -1 when the node count overflows.
	Entries int64
	Limit   int64
}

func (e *ResourceError) Error() string {
	if e.Entries < 0 {
		return fmt.Sprintf("cbpt: %s: node count overflows (%d nodes)", e.Op, e.Nodes)
	}
	return fmt.Sprintf("cbpt: %s: %d nodes need at least %d adjacency entries, limit is %d",
		e.Op, e.Nodes, e.Entries, e.Limit)
}
