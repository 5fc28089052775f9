// SPDX-License-Identifier: GPL-2.0-or-later

package plane

// Tolerance bundles every epsilon used while compiling geometry. One value
// is threaded through plane merging, splitting, clipping and the visibility
// pass.
type Tolerance struct {
	// Normal is the absolute epsilon applied per normal component when
	// merging planes. It also scales the dynamic offset comparison.
	Normal float64 `toml:"normal"`
	// Point is the thickness of a plane when classifying points.
	Point float64 `toml:"point"`
	// DistScale multiplies Normal when comparing plane offsets.
	DistScale float64 `toml:"dist_scale"`
	// MinStabLengthSq rejects separating planes whose unnormalized normal
	// is shorter than this.
	MinStabLengthSq float64 `toml:"min_stab_length_sq"`
}

// DefaultTolerance is tuned for levels modelled in meters.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Normal:          1e-5,
		Point:           1e-3,
		DistScale:       10,
		MinStabLengthSq: 0.1,
	}
}
