package scanner

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artemshloyda/photoledger/internal/media"
)

// ExtensionStat - количество и объём файлов одного расширения.
type ExtensionStat struct {
	Ext   string
	Count int
	Bytes int64
}

// Inventory - сводка по дереву: медиафайлы по расширениям и список
// посторонних файлов.
type Inventory struct {
	Root       string
	Extensions []ExtensionStat
	NonMedia   []string
	TotalFiles int
	TotalBytes int64
}

// Count возвращает количество файлов указанного формата.
func (inv *Inventory) Count(format media.Format) int {
	n := 0
	for _, st := range inv.Extensions {
		if media.DetectFormat("x"+st.Ext) == format {
			n += st.Count
		}
	}
	return n
}

// Inventory обходит root и собирает сводку по всем файлам.
// Посторонние (не HEIC и не JPEG) файлы перечисляются относительными путями.
func (s *Scanner) Inventory(ctx context.Context, root string) (*Inventory, error) {
	inv := &Inventory{Root: root}
	byExt := make(map[string]*ExtensionStat)

	err := s.walk(ctx, root, func(file media.File) error {
		ext := strings.ToLower(filepath.Ext(file.Path))
		if ext == "" {
			ext = "(без расширения)"
		}
		st, ok := byExt[ext]
		if !ok {
			st = &ExtensionStat{Ext: ext}
			byExt[ext] = st
		}
		st.Count++
		st.Bytes += file.Size

		inv.TotalFiles++
		inv.TotalBytes += file.Size
		if file.Format == media.FormatOther {
			inv.NonMedia = append(inv.NonMedia, file.RelPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, st := range byExt {
		inv.Extensions = append(inv.Extensions, *st)
	}
	sort.Slice(inv.Extensions, func(i, j int) bool {
		if inv.Extensions[i].Count != inv.Extensions[j].Count {
			return inv.Extensions[i].Count > inv.Extensions[j].Count
		}
		return inv.Extensions[i].Ext < inv.Extensions[j].Ext
	})
	sort.Strings(inv.NonMedia)

	return inv, nil
}
