package media

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"go-gin-event-admission/internal/model"

	"github.com/google/uuid"
)

const (
	PhotoFolder = "event-photos"
	VideoFolder = "event-videos"
)

// MediaStore keeps upload blobs. The returned ref is what the event aggregate
// stores in its photos / videos list.
type MediaStore interface {
	Put(ctx context.Context, folder string, file model.MediaFile) (string, error)
	Delete(ctx context.Context, ref string) error
}

var extensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"video/mp4":        ".mp4",
	"video/x-matroska": ".mkv",
	"video/x-msvideo":  ".avi",
	"video/quicktime":  ".mov",
}

// ObjectKey returns a fresh key under folder. The extension comes from the
// original filename, or from the content type when the filename has none.
func ObjectKey(folder string, file model.MediaFile) string {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = extensions[file.ContentType]
	}
	return path.Join(folder, uuid.NewString()+ext)
}
