package tonemap

import (
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/film"
)

// ReinhardCurve is L / (1 + L)
func ReinhardCurve(l float64) float64 {
	return l / (1.0 + l)
}

// ModifiedReinhardCurve returns the Reinhard curve extended so that the
// white luminance maps to 1
func ModifiedReinhardCurve(white float64) func(l float64) float64 {
	k := 1.0 / (white * white)
	return func(l float64) float64 {
		return (l / (1.0 + l)) * (1.0 + l*k)
	}
}

// FilmicCurve is the Hejl-Burgess-Dawson fit, which includes gamma
func FilmicCurve(l float64) float64 {
	const (
		a = 6.2
		b = 0.5
		c = 1.7
		d = 0.06
	)
	x := max(0, l-0.004)
	return (x * (a*x + b)) / (x*(a*x+c) + d)
}

// uncharted2Exposure is applied to luminance before the Uncharted 2 curve
const uncharted2Exposure = 2.0

// uncharted2 is Hable's filmic shoulder
func uncharted2(x float64) float64 {
	const (
		a = 0.15
		b = 0.50
		c = 0.10
		d = 0.20
		e = 0.02
		f = 0.30
	)
	return ((x*(a*x+c*b) + d*e) / (x*(a*x+b) + d*f)) - e/f
}

// Uncharted2Curve returns Hable's curve normalized by its value at white
func Uncharted2Curve(white float64) func(l float64) float64 {
	k := 1.0 / uncharted2(white)
	return func(l float64) float64 {
		return k * uncharted2(uncharted2Exposure*l)
	}
}

// ReinhardOperator applies the global Reinhard curve
type ReinhardOperator struct {
	base
}

// Map tone maps hdr into ldr
func (o *ReinhardOperator) Map(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage) {
	o.mapPixels(pool, hdr, ldr, ReinhardCurve)
}

// ModifiedReinhardOperator burns out only the brightest pixel of the image
type ModifiedReinhardOperator struct {
	base
}

// Map finds the white point, then tone maps hdr into ldr
func (o *ModifiedReinhardOperator) Map(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage) {
	white := o.exposure * WhitePoint(pool, hdr)
	o.mapPixels(pool, hdr, ldr, ModifiedReinhardCurve(white))
}

// FilmicOperator applies FilmicCurve without a separate gamma step
type FilmicOperator struct {
	base
}

// Map tone maps hdr into ldr
func (o *FilmicOperator) Map(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage) {
	o.mapPixels(pool, hdr, ldr, FilmicCurve)
}

// Uncharted2Operator applies Hable's curve normalized at the image white point
type Uncharted2Operator struct {
	base
}

// Map finds the white point, then tone maps hdr into ldr
func (o *Uncharted2Operator) Map(pool *core.WorkerPool, hdr *film.HDRImage, ldr *film.LDRImage) {
	white := o.exposure * WhitePoint(pool, hdr)
	o.mapPixels(pool, hdr, ldr, Uncharted2Curve(white))
}
