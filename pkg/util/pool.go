package util

import "runtime"

// GetOptimalPoolSize returns the pool size shared by the parser pools and the
// project worker pool.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// Both pools must agree: a worker that parses a Code Connect file holds one
// parser for the duration of the parse, so fewer parsers than workers would
// leave workers blocked on acquire.
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2
	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}
	return poolSize
}

// GetOptimalPoolSizeWithOverride returns override when it is positive and
// GetOptimalPoolSize() otherwise.
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
