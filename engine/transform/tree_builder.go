package transform

type TreeBuilderOption func(*tree)

// WithWarningHandler routes soft failures (null, self or cyclic children) to fn instead of the shared logger.
//
// Parameters:
//   - fn: receives the warning message and structured key/value pairs
//
// Returns:
//   - TreeBuilderOption: a function that installs the handler
func WithWarningHandler(fn func(msg string, args ...any)) TreeBuilderOption {
	return func(t *tree) {
		if fn != nil {
			t.warn = fn
		}
	}
}
