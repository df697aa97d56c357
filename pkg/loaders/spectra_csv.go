package loaders

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-spectral-film/pkg/spectra"
)

// ReadSpectraCSV reads "wavelength,value" rows. Header rows before the first
// numeric row are skipped; a non-numeric row after it is an error.
func ReadSpectraCSV(r io.Reader) ([]spectra.WavelengthValue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var samples []spectra.WavelengthValue
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", spectra.ErrInvalidSpectrum, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		sample, ok := parseSpectraRow(rec)
		if !ok {
			if samples == nil {
				continue // header
			}
			return nil, fmt.Errorf("%w: line %d: expected wavelength,value, got %q", spectra.ErrInvalidSpectrum, line, strings.Join(rec, ","))
		}
		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no data rows", spectra.ErrInvalidSpectrum)
	}
	return samples, nil
}

func parseSpectraRow(rec []string) (spectra.WavelengthValue, bool) {
	if len(rec) < 2 {
		return spectra.WavelengthValue{}, false
	}
	wavelength, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return spectra.WavelengthValue{}, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return spectra.WavelengthValue{}, false
	}
	return spectra.WavelengthValue{Wavelength: wavelength, Value: value}, true
}

// LoadSpectraCSV reads a spectrum file
func LoadSpectraCSV(path string) ([]spectra.WavelengthValue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spectra file: %w", err)
	}
	defer file.Close()

	samples, err := ReadSpectraCSV(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
