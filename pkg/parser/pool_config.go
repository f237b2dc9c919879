package parser

import (
	"github.com/gnana997/codeconnect/pkg/util"
)

// getDefaultPoolSize returns the per-grammar parser pool size.
//
// It MUST match the project worker pool size (both delegate to
// util.GetOptimalPoolSize) so that workers never block waiting for a parser.
func getDefaultPoolSize() int {
	return util.GetOptimalPoolSize()
}
