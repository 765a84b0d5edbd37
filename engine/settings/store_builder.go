package settings

// StoreBuilderOption is a functional option used to configure a Store during construction.
type StoreBuilderOption func(*store)

// WithPath backs the store with a TOML file. The file is read by Load, not by NewStore.
//
// Parameters:
//   - path: the settings file
//
// Returns:
//   - StoreBuilderOption: a function that sets the backing file
func WithPath(path string) StoreBuilderOption {
	return func(s *store) {
		s.path = path
	}
}

// WithSettings sets the initial settings, normalized.
//
// Parameters:
//   - v: the initial settings
//
// Returns:
//   - StoreBuilderOption: a function that sets the initial settings
func WithSettings(v Settings) StoreBuilderOption {
	return func(s *store) {
		s.current = v.Normalized()
	}
}
