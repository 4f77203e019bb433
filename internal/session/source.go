package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"Go2FlowText/internal/config"
	"Go2FlowText/internal/model"
)

// NewSource builds the feature source selected by cfg.Mode.
func NewSource(cfg config.FeaturesConfig) (model.FeatureSource, error) {
	switch cfg.Mode {
	case "", "none":
		return NopSource{}, nil
	case "tuple":
		return NewTupleSource(cfg.TablePath, cfg.Exclude)
	case "flowid":
		return NewFlowIDSource(cfg.TableDir, cfg.Exclude), nil
	default:
		return nil, fmt.Errorf("unknown feature mode: '%s'", cfg.Mode)
	}
}

// NopSource returns an empty feature string for every capture.
type NopSource struct{}

// SessionFeature implements model.FeatureSource.
func (NopSource) SessionFeature(string) (string, error) {
	return "", nil
}

// TupleSource matches captures against one or more feature tables by 5-tuple.
type TupleSource struct {
	tables []*Table
}

// NewTupleSource loads a single CSV, or every CSV of a directory in name order.
func NewTupleSource(path string, exclude []string) (*TupleSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat feature table path: %w", err)
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = filepath.Glob(filepath.Join(path, "*.csv"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
	}

	src := &TupleSource{}
	for _, p := range paths {
		t, err := LoadTable(p, exclude)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded feature table '%s' with %d rows", p, t.Len())
		src.tables = append(src.tables, t)
	}
	return src, nil
}

// SessionFeature implements model.FeatureSource.
func (s *TupleSource) SessionFeature(capturePath string) (string, error) {
	ft, err := DescriptorFor(capturePath)
	if err != nil {
		return "", nil
	}
	for _, t := range s.tables {
		if i, ok := t.LookupTuple(ft); ok {
			return t.Feature(i), nil
		}
	}
	return "", nil
}

// FlowIDSource looks up a per-class table named after the capture's label
// directory and matches rows through the flow identifier column.
type FlowIDSource struct {
	dir     string
	exclude []string

	mu     sync.Mutex
	tables map[string]*Table
}

// NewFlowIDSource creates a source reading "<dir>/<class>.csv" on demand.
func NewFlowIDSource(dir string, exclude []string) *FlowIDSource {
	return &FlowIDSource{dir: dir, exclude: exclude, tables: make(map[string]*Table)}
}

// SessionFeature implements model.FeatureSource.
func (s *FlowIDSource) SessionFeature(capturePath string) (string, error) {
	class := filepath.Base(filepath.Dir(capturePath))
	t, err := s.table(class)
	if err != nil || t == nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(capturePath), filepath.Ext(capturePath))
	ids := []string{stem}
	if ft, err := ParseDescriptor(capturePath); err == nil {
		ids = append(ids, FlowID(ft), FlowID(ft.Reverse()))
	}
	if i, ok := t.LookupID(ids...); ok {
		return t.Feature(i), nil
	}
	return "", nil
}

// table returns the cached table for class; nil when the class has none.
func (s *FlowIDSource) table(class string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[class]; ok {
		return t, nil
	}
	t, err := LoadTable(filepath.Join(s.dir, class+".csv"), s.exclude)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.tables[class] = nil
			return nil, nil
		}
		return nil, err
	}
	s.tables[class] = t
	return t, nil
}

// FlowID formats ft the way CICFlowMeter writes its "Flow ID" column:
// srcip-dstip-srcport-dstport-protocol.
func FlowID(ft model.FiveTuple) string {
	return fmt.Sprintf("%s-%s-%d-%d-%s", ft.SrcIP.Unmap(), ft.DstIP.Unmap(), ft.SrcPort, ft.DstPort, protocolNumber(ft.Protocol))
}
