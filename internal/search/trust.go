package search

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

//go:embed credible_sources.json
var credibleSourcesJSON []byte

type sourceEntry struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	TrustLevel string `json:"trust_level"`
	Category   string `json:"category"`
}

// TrustList - реестр известных финансовых изданий
type TrustList struct {
	sources []domain.Source
}

func DefaultTrustList() *TrustList {
	tl, err := ParseTrustList(credibleSourcesJSON)
	if err != nil {
		// встроенный файл проверяется тестом
		panic(err)
	}
	return tl
}

func ParseTrustList(data []byte) (*TrustList, error) {
	var entries []sourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse trust list: %w", err)
	}

	tl := &TrustList{sources: make([]domain.Source, 0, len(entries))}
	for _, e := range entries {
		level, err := domain.ParseTrustLevel(e.TrustLevel)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", e.Name, err)
		}
		s := domain.Source{
			Name:       e.Name,
			URL:        e.URL,
			TrustLevel: level,
			Category:   e.Category,
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("source %q: %w", e.Name, err)
		}
		tl.sources = append(tl.sources, s)
	}

	// длинные хосты первыми, чтобы finance.yahoo.com не перекрывался yahoo.com
	sort.SliceStable(tl.sources, func(i, j int) bool {
		return len(tl.sources[i].Host()) > len(tl.sources[j].Host())
	})
	return tl, nil
}

func (t *TrustList) Sources() []domain.Source {
	return append([]domain.Source(nil), t.sources...)
}

// Lookup - неизвестные ссылки получают low
func (t *TrustList) Lookup(rawURL string) (domain.Source, bool) {
	for _, s := range t.sources {
		if s.Matches(rawURL) {
			return s, true
		}
	}
	return domain.Source{}, false
}

func (t *TrustList) Level(rawURL string) domain.TrustLevel {
	if s, ok := t.Lookup(rawURL); ok {
		return s.TrustLevel
	}
	return domain.TrustLow
}

// Rank - сортировка: сначала доверенные источники, внутри уровня по score
func (t *TrustList) Rank(results []SearchResult) []SearchResult {
	out := append([]SearchResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := t.Level(out[i].URL).Rank(), t.Level(out[j].URL).Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].Score > out[j].Score
	})
	return out
}
