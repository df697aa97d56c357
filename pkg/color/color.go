// Package color provides tristimulus triples, the matrices that convert
// between them and the named RGB color spaces used by the renderer.
package color

import "math"

// triple is the shared shape of the three-component color types
type triple interface {
	~[3]float64
}

// RGB is a linear RGB color
type RGB [3]float64

// XYZ is a CIE XYZ tristimulus value
type XYZ [3]float64

// Yxy is luminance Y plus chromaticity (x, y), stored in that order
type Yxy [3]float64

// Vec2 is a two component value used for chromaticity planes (uv, xy*)
type Vec2 [2]float64

// NewRGB creates an RGB color
func NewRGB(r, g, b float64) RGB { return RGB{r, g, b} }

// NewXYZ creates an XYZ color
func NewXYZ(x, y, z float64) XYZ { return XYZ{x, y, z} }

// Gray returns an RGB color with all channels set to v
func Gray(v float64) RGB { return RGB{v, v, v} }

func add[T triple](a, b T) T { return T{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub[T triple](a, b T) T { return T{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func mul[T triple](a, b T) T { return T{a[0] * b[0], a[1] * b[1], a[2] * b[2]} }
func div[T triple](a, b T) T { return T{a[0] / b[0], a[1] / b[1], a[2] / b[2]} }
func mulScalar[T triple](a T, s float64) T {
	return T{a[0] * s, a[1] * s, a[2] * s}
}

func clamp[T triple](a T, lo, hi float64) T {
	return T{
		max(lo, min(hi, a[0])),
		max(lo, min(hi, a[1])),
		max(lo, min(hi, a[2])),
	}
}

func maxOf[T triple](a T) float64 { return max(a[0], a[1], a[2]) }
func minOf[T triple](a T) float64 { return min(a[0], a[1], a[2]) }

// scale divides every component by the largest one. A zero maximum gives zero.
func scale[T triple](a T) T {
	m := maxOf(a)
	k := 0.0
	if m != 0 {
		k = 1.0 / m
	}
	return mulScalar(a, k)
}

// Red returns the red channel
func (c RGB) Red() float64 { return c[0] }

// Green returns the green channel
func (c RGB) Green() float64 { return c[1] }

// Blue returns the blue channel
func (c RGB) Blue() float64 { return c[2] }

// Add returns c + o
func (c RGB) Add(o RGB) RGB { return add(c, o) }

// Sub returns c - o
func (c RGB) Sub(o RGB) RGB { return sub(c, o) }

// Mul returns the component-wise product
func (c RGB) Mul(o RGB) RGB { return mul(c, o) }

// Div returns the component-wise quotient
func (c RGB) Div(o RGB) RGB { return div(c, o) }

// MulScalar returns c scaled by s
func (c RGB) MulScalar(s float64) RGB { return mulScalar(c, s) }

// Clamp returns c with components clamped to [lo, hi]
func (c RGB) Clamp(lo, hi float64) RGB { return clamp(c, lo, hi) }

// Max returns the largest channel
func (c RGB) Max() float64 { return maxOf(c) }

// Min returns the smallest channel
func (c RGB) Min() float64 { return minOf(c) }

// Scale divides every channel by the largest so the maximum becomes 1.
// Hue is preserved, unlike per-channel clipping.
func (c RGB) Scale() RGB { return scale(c) }

// CorrectGamma raises every channel to the power gamma
func (c RGB) CorrectGamma(gamma float64) RGB {
	return RGB{math.Pow(c[0], gamma), math.Pow(c[1], gamma), math.Pow(c[2], gamma)}
}

// IsBlack reports whether all channels are zero
func (c RGB) IsBlack() bool { return c[0] == 0 && c[1] == 0 && c[2] == 0 }

// ToXYZ converts linear RGB in the given space to XYZ
func (c RGB) ToXYZ(space ColorSpace) XYZ {
	return XYZ(space.RGBToXYZMatrix().MulVec(c))
}

// X returns the X component
func (c XYZ) X() float64 { return c[0] }

// Y returns the luminance component
func (c XYZ) Y() float64 { return c[1] }

// Z returns the Z component
func (c XYZ) Z() float64 { return c[2] }

// Add returns c + o
func (c XYZ) Add(o XYZ) XYZ { return add(c, o) }

// Sub returns c - o
func (c XYZ) Sub(o XYZ) XYZ { return sub(c, o) }

// MulScalar returns c scaled by s
func (c XYZ) MulScalar(s float64) XYZ { return mulScalar(c, s) }

// Clamp returns c with components clamped to [lo, hi]
func (c XYZ) Clamp(lo, hi float64) XYZ { return clamp(c, lo, hi) }

// Max returns the largest component
func (c XYZ) Max() float64 { return maxOf(c) }

// Sum returns X + Y + Z
func (c XYZ) Sum() float64 { return c[0] + c[1] + c[2] }

// ToRGB converts XYZ to linear RGB in the given space
func (c XYZ) ToRGB(space ColorSpace) RGB {
	return RGB(space.XYZToRGBMatrix().MulVec(c))
}

// ToYxy converts to luminance and chromaticity.
// A zero sum produces non-finite chromaticity.
func (c XYZ) ToYxy() Yxy {
	k := 1.0 / (c[0] + c[1] + c[2])
	return Yxy{c[1], k * c[0], k * c[1]}
}

// Y returns the luminance
func (c Yxy) Y() float64 { return c[0] }

// X returns the x chromaticity coordinate
func (c Yxy) X() float64 { return c[1] }

// SmallY returns the y chromaticity coordinate
func (c Yxy) SmallY() float64 { return c[2] }

// WithY returns c with the luminance replaced
func (c Yxy) WithY(y float64) Yxy { return Yxy{y, c[1], c[2]} }

// ToXYZ converts back to XYZ. The result is not finite when y is zero.
func (c Yxy) ToXYZ() XYZ {
	k := c[0] / c[2]
	return XYZ{k * c[1], c[0], k * (1.0 - c[1] - c[2])}
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v[0] + o[0], v[1] + o[1]} }

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v[0] - o[0], v[1] - o[1]} }

// MulScalar returns v scaled by s
func (v Vec2) MulScalar(s float64) Vec2 { return Vec2{v[0] * s, v[1] * s} }

// Cross returns the z component of the 3D cross product
func (v Vec2) Cross(o Vec2) float64 { return v[0]*o[1] - o[0]*v[1] }

// Length returns the euclidean length
func (v Vec2) Length() float64 { return math.Hypot(v[0], v[1]) }
