package deps

import "errors"

// ErrMissingDependency means a required external tool is not installed and
// was not installed on request.
var ErrMissingDependency = errors.New("missing dependency")
