package gpu

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*gpuDevice)

// WithName sets the label of the device and the backend name reported in logs.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - DeviceBuilderOption: a function that sets the device name
func WithName(name string) DeviceBuilderOption {
	return func(d *gpuDevice) {
		if name != "" {
			d.name = name
		}
	}
}

// WithPresentMode sets the initial present mode.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - DeviceBuilderOption: a function that sets the present mode
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.presentMode = mode
	}
}

// WithFallbackAdapter forces the software fallback adapter, for machines without a usable GPU.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that sets the adapter preference
func WithFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.forceFallback = force
	}
}

// WithValidation toggles the naga pass over every registered program. Failures are logged and the
// driver's own compiler has the final word.
//
// Parameters:
//   - validate: true to validate programs
//
// Returns:
//   - DeviceBuilderOption: a function that sets program validation
func WithValidation(validate bool) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.validate = validate
	}
}
