package mediasource

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fudoniten/pseudovision/internal/model"
)

var (
	videoExtensions = map[string]bool{
		".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
		".mpg": true, ".mpeg": true, ".m2ts": true, ".ts": true,
	}
	audioExtensions = map[string]bool{
		".mp3": true, ".flac": true, ".m4a": true, ".aac": true,
		".ogg": true, ".opus": true, ".wma": true, ".wav": true,
	}

	skipDirs = map[string]bool{
		"@eaDir": true, ".thumbnails": true, ".AppleDouble": true,
		"$RECYCLE.BIN": true, "System Volume Information": true,
		"lost+found": true, ".Trash": true, ".cache": true,
	}

	yearPattern = regexp.MustCompile(`[\(\[\.\s](19|20)\d{2}[\)\]\.\s]`)
	tagStrip    = regexp.MustCompile(`(?i)\b(1080p|720p|480p|2160p|4k|bluray|brrip|webrip|web-dl|hdtv|dvdrip|xvid|x264|x265|hevc)\b`)
)

// LocalSyncer walks a filesystem root and emits one DraftItem per
// supported media file, keyed by its absolute path. Duration is left
// zero; a media item with zero duration is skippable
// (model.MediaItem.Skippable) until a later probe pass fills it in.
type LocalSyncer struct{}

// NewLocalSyncer builds a LocalSyncer.
func NewLocalSyncer() *LocalSyncer {
	return &LocalSyncer{}
}

func (s *LocalSyncer) Sync(ctx context.Context, cfg model.ConnectionConfig) ([]DraftItem, error) {
	root := cfg.RootPath
	if root == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var items []DraftItem
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if len(name) > 0 && name[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := kindForExtension(path)
		if !ok {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		title, year := parseTitleAndYear(d.Name())
		items = append(items, DraftItem{
			Path:  abs,
			Kind:  kind,
			Title: title,
			Year:  year,
			State: model.MediaItemStateUnavailable,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func kindForExtension(path string) (model.MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExtensions[ext]:
		return model.MediaKindMovie, true
	case audioExtensions[ext]:
		return model.MediaKindSong, true
	default:
		return "", false
	}
}

// parseTitleAndYear extracts a cleaned title and an optional release
// year from a filename, tolerating the dot/underscore separated
// release-group naming convention ("The.Matrix.1999.1080p.BluRay.mkv").
func parseTitleAndYear(name string) (string, *int32) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	cleaned := tagStrip.ReplaceAllString(base, "")

	var year *int32
	title := cleaned
	if loc := yearPattern.FindStringIndex(cleaned); loc != nil {
		match := yearPattern.FindString(cleaned)
		digits := strings.TrimFunc(match, func(r rune) bool { return r < '0' || r > '9' })
		if y, err := strconv.Atoi(digits); err == nil {
			y32 := int32(y)
			year = &y32
		}
		title = cleaned[:loc[0]]
	}

	title = strings.ReplaceAll(title, ".", " ")
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.Join(strings.Fields(title), " ")
	return strings.TrimSpace(title), year
}
