package soft

type DeviceBuilderOption func(*softDevice)

// WithName sets the backend name reported by Name and in logs.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - DeviceBuilderOption: a function that sets the device name
func WithName(name string) DeviceBuilderOption {
	return func(d *softDevice) {
		if name != "" {
			d.name = name
		}
	}
}
