package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/rpdarchive/internal/model"
)

// ReadSeries loads a series file written by WriteSeries.
func ReadSeries(path string) (*model.SeriesMap, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, err
	}
	series := model.NewSeriesMap()
	if err := json.Unmarshal(data, series); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return series, nil
}

// ReadLinks loads a links file written by WriteLinks.
func ReadLinks(path string) (model.LinkIndex, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, err
	}
	links := model.LinkIndex{}
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return links, nil
}

// ErrMissingInput is returned when a required input file does not exist.
var ErrMissingInput = errors.New("missing input file")

// RequireFile returns ErrMissingInput, naming path, when path does not exist.
func RequireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return err
	}
	return nil
}
