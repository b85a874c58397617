package probe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/minizivpn/tunneld/config"
	"github.com/minizivpn/tunneld/signal"
	"gopkg.in/yaml.v3"
)

// ErrPermissionDenied is returned by a Source when the platform refuses
// access to radio state.
var ErrPermissionDenied = errors.New("permission to read cell info denied")

// Source is the platform's radio-state interface. Cells returns every cell
// record currently visible, in the order the platform reports them.
type Source interface {
	Cells(ctx context.Context) ([]signal.Sample, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context) ([]signal.Sample, error)

func (f SourceFunc) Cells(ctx context.Context) ([]signal.Sample, error) {
	return f(ctx)
}

// StaticSource always reports the same records.
type StaticSource []signal.Sample

func (s StaticSource) Cells(ctx context.Context) ([]signal.Sample, error) {
	cells := make([]signal.Sample, len(s))
	copy(cells, s)
	return cells, nil
}

// FileSource reads a cell-info document dumped by the platform bridge:
//
//	permission: granted
//	cells:
//	  - {type: lte, registered: true, rsrp: -95, sinr: 12}
//
// The bridge rewrites the file whenever the radio state changes; every call
// to Cells reads it again.
type FileSource struct {
	Path string
}

func (s FileSource) Cells(ctx context.Context) ([]signal.Sample, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	return parseCellInfo(b)
}

func parseCellInfo(b []byte) ([]signal.Sample, error) {
	var doc struct {
		Permission string                   `yaml:"permission"`
		Cells      []map[string]interface{} `yaml:"cells"`
	}

	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("cell info: %w", err)
	}

	switch doc.Permission {
	case "granted", "":
	case "denied":
		return nil, ErrPermissionDenied
	default:
		return nil, fmt.Errorf("cell info: unknown permission: %s", doc.Permission)
	}

	cells := make([]signal.Sample, 0, len(doc.Cells))
	for i, data := range doc.Cells {
		cell, err := config.ParseCell(data)
		if err != nil {
			return nil, fmt.Errorf("cell info: cell %d: %w", i, err)
		}

		cells = append(cells, cell)
	}

	return cells, nil
}

// NewSource builds the Source described by conf.
func NewSource(conf config.ProbeConfig) (Source, error) {
	switch conf.Source {
	case config.SourceStatic:
		return StaticSource(conf.Cells), nil
	case config.SourceFile:
		return FileSource{Path: conf.Path}, nil
	default:
		return nil, fmt.Errorf("probe: unsupported source: %s", conf.Source)
	}
}
