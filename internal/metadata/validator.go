package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/artemshloyda/photoledger/internal/media"
)

// exifDateLayout - формат дат в EXIF.
const exifDateLayout = "2006:01:02 15:04:05"

// defaultMaxScan - сколько байт HEIC читается в поисках блока Exif.
const defaultMaxScan = 64 << 20

// exifMarker предшествует TIFF-заголовку EXIF внутри контейнера HEIF.
var exifMarker = []byte("Exif\x00\x00")

// DateReader читает дату съёмки. Реализуется Validator и подменяется в тестах.
type DateReader interface {
	ReadCreationDate(path string) (*time.Time, error)
}

// Validator извлекает дату съёмки из EXIF через goexif.
type Validator struct {
	// maxScan - предел чтения HEIC-файла при поиске EXIF.
	maxScan int64

	// location - часовой пояс для дат EXIF (в EXIF пояс не хранится).
	location *time.Location
}

// NewValidator создаёт Validator с настройками по умолчанию.
func NewValidator() *Validator {
	return &Validator{
		maxScan:  defaultMaxScan,
		location: time.Local,
	}
}

// ReadCreationDate возвращает дату съёмки или nil, если её нет.
// Отсутствующий или битый EXIF - не ошибка. Ошибка возвращается только
// для нечитаемого файла (CorruptMediaError).
func (v *Validator) ReadCreationDate(path string) (*time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CorruptMediaError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, &CorruptMediaError{Path: path, Err: err}
	}
	if info.Size() == 0 {
		return nil, &CorruptMediaError{Path: path, Err: errors.New("пустой файл")}
	}

	var x *exif.Exif
	switch media.DetectFormat(path) {
	case media.FormatHEIC:
		data, err := io.ReadAll(io.LimitReader(f, v.maxScan))
		if err != nil {
			return nil, &CorruptMediaError{Path: path, Err: err}
		}
		x = decodeEmbedded(data)
	default:
		// JPEG и TIFF goexif разбирает сам
		x, _ = exif.Decode(f)
	}

	if x == nil {
		return nil, nil
	}
	return v.dateFromExif(x), nil
}

// decodeEmbedded ищет блок "Exif\0\0" с корректным TIFF-заголовком и разбирает его.
func decodeEmbedded(data []byte) *exif.Exif {
	offset := 0
	for {
		i := bytes.Index(data[offset:], exifMarker)
		if i < 0 {
			return nil
		}
		start := offset + i + len(exifMarker)
		if hasTIFFHeader(data[start:]) {
			// goexif может вернуть частично разобранный x вместе с ошибкой
			if x, _ := exif.Decode(bytes.NewReader(data[start:])); x != nil {
				return x
			}
		}
		offset = start
	}
}

func hasTIFFHeader(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	h := string(b[:4])
	return h == "II*\x00" || h == "MM\x00*"
}

// dateFromExif перебирает теги в порядке надёжности:
// DateTimeOriginal, DateTimeDigitized, DateTime.
func (v *Validator) dateFromExif(x *exif.Exif) *time.Time {
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		if t, err := parseExifDate(s, v.location); err == nil {
			return &t
		}
	}
	return nil
}

func parseExifDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "\x00")
	t, err := time.ParseInLocation(exifDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная дата EXIF %q: %w", s, err)
	}
	if t.Year() < 1900 {
		return time.Time{}, fmt.Errorf("некорректная дата EXIF %q", s)
	}
	return t, nil
}
