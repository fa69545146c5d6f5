package organize

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/artemshloyda/photoledger/internal/media"
)

// Analysis - насколько дерево уже разложено по датам.
type Analysis struct {
	Total       int
	Organized   int
	Unorganized []string

	// Patterns - количество файлов в каждой папке YYYY/MM.
	Patterns map[string]int
}

// Analyze считает файлы в папках YYYY/MM относительно root.
func Analyze(root string, files []media.File) *Analysis {
	a := &Analysis{Patterns: make(map[string]int)}
	for _, f := range files {
		if f.Format == media.FormatOther {
			continue
		}
		rel, err := filepath.Rel(root, f.Path)
		if err != nil {
			continue
		}
		a.Total++
		if IsDateFolder(rel) {
			a.Organized++
			parts := strings.SplitN(filepath.ToSlash(rel), "/", 3)
			a.Patterns[parts[0]+"/"+parts[1]]++
			continue
		}
		a.Unorganized = append(a.Unorganized, rel)
	}
	sort.Strings(a.Unorganized)
	return a
}

// Percent - доля разложенных файлов.
func (a *Analysis) Percent() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Organized) / float64(a.Total) * 100
}

// Years возвращает найденные годы по возрастанию.
func (a *Analysis) Years() []string {
	seen := make(map[string]struct{})
	for p := range a.Patterns {
		seen[p[:4]] = struct{}{}
	}
	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}
