package color

import (
	"errors"
	"fmt"
	"strings"
)

// ColorSpace identifies an RGB working space and its reference white
type ColorSpace int

const (
	SRGBD65 ColorSpace = iota
	SRGBD50
	AdobeRGBD65
	AdobeRGBD50
)

// ErrUnknownColorSpace is returned when a color space name is not recognized
var ErrUnknownColorSpace = errors.New("unknown color space")

var (
	srgbD65XYZToRGB = Matrix3{
		3.2404542, -1.5371385, -0.4985314,
		-0.9692660, 1.8760108, 0.0415560,
		0.0556434, -0.2040259, 1.0572252,
	}
	srgbD65RGBToXYZ = Matrix3{
		0.4124564, 0.3575761, 0.1804375,
		0.2126729, 0.7151522, 0.0721750,
		0.0193339, 0.1191920, 0.9503041,
	}

	srgbD50XYZToRGB = Matrix3{
		3.1338561, -1.6168667, -0.4906146,
		-0.9787684, 1.9161415, 0.0334540,
		0.0719453, -0.2289914, 1.4052427,
	}
	srgbD50RGBToXYZ = Matrix3{
		0.4360747, 0.3850649, 0.1430804,
		0.2225045, 0.7168786, 0.0606169,
		0.0139322, 0.0971045, 0.7141733,
	}

	adobeD65XYZToRGB = Matrix3{
		2.0413690, -0.5649464, -0.3446944,
		-0.9692660, 1.8760108, 0.0415560,
		0.0134474, -0.1183897, 1.0154096,
	}
	adobeD65RGBToXYZ = Matrix3{
		0.5767309, 0.1855540, 0.1881852,
		0.2973769, 0.6273491, 0.0752741,
		0.0270343, 0.0706872, 0.9911085,
	}

	adobeD50XYZToRGB = Matrix3{
		1.9624274, -0.6105343, -0.3413404,
		-0.9787684, 1.9161415, 0.0334540,
		0.0286869, -0.1406752, 1.3487655,
	}
	adobeD50RGBToXYZ = Matrix3{
		0.6097559, 0.2052401, 0.1492240,
		0.3111242, 0.6256560, 0.0632197,
		0.0194811, 0.0608902, 0.7448387,
	}
)

var colorSpaceNames = map[ColorSpace]string{
	SRGBD65:     "srgb-d65",
	SRGBD50:     "srgb-d50",
	AdobeRGBD65: "adobergb-d65",
	AdobeRGBD50: "adobergb-d50",
}

// XYZToRGBMatrix returns the matrix converting XYZ into this space.
// Panics on an unknown color space.
func (cs ColorSpace) XYZToRGBMatrix() Matrix3 {
	switch cs {
	case SRGBD65:
		return srgbD65XYZToRGB
	case SRGBD50:
		return srgbD50XYZToRGB
	case AdobeRGBD65:
		return adobeD65XYZToRGB
	case AdobeRGBD50:
		return adobeD50XYZToRGB
	}
	panic(fmt.Sprintf("color: unsupported color space %d", int(cs)))
}

// RGBToXYZMatrix returns the matrix converting this space into XYZ.
// Panics on an unknown color space.
func (cs ColorSpace) RGBToXYZMatrix() Matrix3 {
	switch cs {
	case SRGBD65:
		return srgbD65RGBToXYZ
	case SRGBD50:
		return srgbD50RGBToXYZ
	case AdobeRGBD65:
		return adobeD65RGBToXYZ
	case AdobeRGBD50:
		return adobeD50RGBToXYZ
	}
	panic(fmt.Sprintf("color: unsupported color space %d", int(cs)))
}

// String returns the settings name of the color space
func (cs ColorSpace) String() string {
	if name, ok := colorSpaceNames[cs]; ok {
		return name
	}
	return fmt.Sprintf("ColorSpace(%d)", int(cs))
}

// ParseColorSpace resolves a settings name such as "srgb-d65".
// Matching ignores case, spaces and underscores.
func ParseColorSpace(name string) (ColorSpace, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	for cs, n := range colorSpaceNames {
		if n == key {
			return cs, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColorSpace, name)
}
