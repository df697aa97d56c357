package film

import (
	"math"
	"sync"
	"testing"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/spectra"
)

func rgbSample(r, g, b float64) spectra.SampledSpectra {
	w := spectra.NewSampledWavelengths([spectra.WavelengthSampleSize]int{
		spectra.BlueWavelength, spectra.GreenWavelength, spectra.RedWavelength,
	}, 1)
	s := spectra.NewSampledSpectra(w)
	s.Intensities = [spectra.WavelengthSampleSize]float64{b, g, r}
	return s
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestPixelIsolation(t *testing.T) {
	// Each goroutine owns one row; the sums must match exactly
	width, height, samples := 16, 8, 1000
	for _, summation := range []core.Summation{core.PlainSummation{}, core.KahanSummation{}} {
		f := NewRGBSpectraImage(width, height, color.SRGBD65, summation)

		var wg sync.WaitGroup
		for y := 0; y < height; y++ {
			wg.Add(1)
			go func(y int) {
				defer wg.Done()
				for n := 0; n < samples; n++ {
					for x := 0; x < width; x++ {
						f.AddContribution(x, y, rgbSample(0.5, 0.25, float64(y)))
					}
				}
			}(y)
		}
		wg.Wait()

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				got := f.RGB(x, y)
				expected := color.RGB{0.5 * float64(samples), 0.25 * float64(samples), float64(y * samples)}
				if got != expected {
					t.Errorf("%s: pixel (%d,%d) expected %v, got %v", summation.Name(), x, y, expected, got)
				}
			}
		}
	}
}

func TestCompensatedAccumulation(t *testing.T) {
	plain := NewRGBSpectraImage(1, 1, color.SRGBD65, core.PlainSummation{})
	kahan := NewRGBSpectraImage(1, 1, color.SRGBD65, core.KahanSummation{})

	for _, f := range []*RGBSpectraImage{plain, kahan} {
		f.AddContribution(0, 0, rgbSample(1, 1, 1))
		for n := 0; n < 10000; n++ {
			f.AddContribution(0, 0, rgbSample(1e-16, 1e-16, 1e-16))
		}
	}

	if plain.RGB(0, 0).Red() != 1 {
		t.Errorf("Expected plain summation to drop tiny terms, got %.17g", plain.RGB(0, 0).Red())
	}
	if got := kahan.RGB(0, 0).Red(); math.Abs(got-(1+1e-12)) > 1e-14 {
		t.Errorf("Expected compensated sum 1+1e-12, got %.17g", got)
	}
}

func TestClear(t *testing.T) {
	f := NewRGBSpectraImage(2, 2, color.SRGBD65, core.KahanSummation{})
	f.AddContribution(1, 1, rgbSample(1, 2, 3))
	f.Clear()
	if !f.RGB(1, 1).IsBlack() {
		t.Errorf("Expected black after Clear, got %v", f.RGB(1, 1))
	}
	for i, c := range f.comp {
		if c != 0 {
			t.Fatalf("Expected zero correction term at %d, got %g", i, c)
		}
	}
}

func TestRGBSpectraImage_ToHDRImage(t *testing.T) {
	pool := core.NewWorkerPool(3)
	defer pool.Stop()

	f := NewRGBSpectraImage(5, 3, color.SRGBD65, nil)
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			f.AddContribution(x, y, rgbSample(1, 1, 1))
			f.AddContribution(x, y, rgbSample(1, 1, 1))
		}
	}

	hdr := NewHDRImage(5, 3)
	f.ToHDRImage(pool, 2, hdr)
	white := color.Gray(1).ToXYZ(color.SRGBD65)
	for i, xyz := range hdr.Pixels {
		if xyz != white {
			t.Errorf("Pixel %d: expected %v, got %v", i, white, xyz)
		}
	}
}

func TestSpectraImage_ToHDRImage(t *testing.T) {
	pool := core.NewWorkerPool(4)
	defer pool.Stop()
	cmf := spectra.DefaultCMF()

	f := NewSpectraImage(7, 5, cmf, core.KahanSummation{})
	w := spectra.NewSampledWavelengths([spectra.WavelengthSampleSize]int{450, 560, 640}, 12)
	s := spectra.NewSampledSpectra(w)
	s.Intensities = [spectra.WavelengthSampleSize]float64{0.3, 0.6, 0.9}
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			for n := 0; n < 4; n++ {
				f.AddContribution(x, y, s)
			}
		}
	}

	expected := spectra.NewDistribution(spectra.SpectraRepresentation)
	expected.SetByWavelength(450, 0.3)
	expected.SetByWavelength(560, 0.6)
	expected.SetByWavelength(640, 0.9)
	xyz := cmf.ToXYZForEmitter(expected)

	hdr := NewHDRImage(7, 5)
	f.ToHDRImage(pool, 4, hdr)
	for i, got := range hdr.Pixels {
		for c := 0; c < 3; c++ {
			if math.Abs(got[c]-xyz[c]) > 1e-12 {
				t.Errorf("Pixel %d channel %d: expected %g, got %g", i, c, xyz[c], got[c])
			}
		}
	}

	spectrum := f.Spectrum(3, 2)
	if math.Abs(spectrum.GetByWavelength(560)-2.4) > 1e-12 {
		t.Errorf("Expected accumulated 2.4 at 560nm, got %g", spectrum.GetByWavelength(560))
	}
}

func TestAddContribution_Panics(t *testing.T) {
	f := NewRGBSpectraImage(2, 2, color.SRGBD65, nil)
	expectPanic(t, "nan", func() { f.AddContribution(0, 0, rgbSample(math.NaN(), 0, 0)) })
	expectPanic(t, "inf", func() { f.AddContribution(0, 0, rgbSample(0, math.Inf(1), 0)) })
	expectPanic(t, "negative", func() { f.AddContribution(0, 0, rgbSample(0, 0, -1)) })
	expectPanic(t, "outside", func() { f.AddContribution(2, 0, rgbSample(0, 0, 0)) })
}

func TestToHDRImage_Panics(t *testing.T) {
	pool := core.NewWorkerPool(1)
	defer pool.Stop()
	f := NewSpectraImage(2, 2, spectra.DefaultCMF(), nil)

	expectPanic(t, "nil", func() { f.ToHDRImage(pool, 1, nil) })
	expectPanic(t, "mismatch", func() { f.ToHDRImage(pool, 1, NewHDRImage(3, 2)) })
	expectPanic(t, "cycle", func() { f.ToHDRImage(pool, 0, NewHDRImage(2, 2)) })
}

func TestNewFilm(t *testing.T) {
	if _, ok := NewFilm(spectra.NewSystem(spectra.RGBMode, color.SRGBD65, 2.2), 4, 4).(*RGBSpectraImage); !ok {
		t.Error("Expected RGB film for RGB mode")
	}
	f, ok := NewFilm(spectra.DefaultSystem(), 4, 3).(*SpectraImage)
	if !ok {
		t.Fatal("Expected spectral film for spectra mode")
	}
	if f.Width() != 4 || f.Height() != 3 {
		t.Errorf("Expected 4x3 film, got %dx%d", f.Width(), f.Height())
	}
	if f.Summation().Name() != "compensated" {
		t.Errorf("Expected compensated summation, got %s", f.Summation().Name())
	}
}
