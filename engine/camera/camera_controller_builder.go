package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*orbitController)

// WithOrbit sets the initial spherical coordinates.
//
// Parameters:
//   - radius: distance from the target
//   - azimuth: angle around +Y in radians, 0 looks from +Z
//   - elevation: angle above the XZ plane in radians
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit
func WithOrbit(radius, azimuth, elevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.radius, cc.azimuth, cc.elevation = radius, azimuth, elevation
	}
}

// WithTarget sets the orbit center.
//
// Parameters:
//   - target: the point the camera looks at
//
// Returns:
//   - CameraControllerOption: functional option to set the target
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *orbitController) {
		cc.target = target
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - minRadius: the closest distance to the target
//   - maxRadius: the farthest distance from the target
//
// Returns:
//   - CameraControllerOption: functional option to set the bounds
func WithRadiusBounds(minRadius, maxRadius float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minRadius, cc.maxRadius = minRadius, maxRadius
	}
}

// WithElevationBounds sets the elevation limits in radians.
func WithElevationBounds(minElevation, maxElevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minElevation, cc.maxElevation = minElevation, maxElevation
	}
}

// WithSpeeds sets the input scales. Zero keeps the default of that scale.
//
// Parameters:
//   - orbit: radians per keyboard step
//   - mouse: radians per dragged pixel
//   - zoom: units per zoom delta
//   - pan: units per pan delta
//
// Returns:
//   - CameraControllerOption: functional option to set the speeds
func WithSpeeds(orbit, mouse, zoom, pan float32) CameraControllerOption {
	return func(cc *orbitController) {
		if orbit != 0 {
			cc.orbitSpeed = orbit
		}
		if mouse != 0 {
			cc.mouseSensitivity = mouse
		}
		if zoom != 0 {
			cc.zoomSpeed = zoom
		}
		if pan != 0 {
			cc.panSpeed = pan
		}
	}
}
