package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/storage"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 10 << 20

var allowedUploads = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
	"video/mp4":       ".mp4",
}

var uploadKinds = map[string]bool{"avatar": true, "thumbnail": true, "attachment": true}

type UploadHandler struct {
	DB    *gorm.DB
	Store storage.ObjectStore
	Log   zerolog.Logger
}

// Upload stores the multipart field "file". The optional "kind" field
// (avatar|thumbnail|attachment) picks the key prefix; avatars also update
// the caller's profile.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	kind := strings.ToLower(c.FormValue("kind", "attachment"))
	if !uploadKinds[kind] {
		return apperr.Field("kind", "must be one of: avatar, thumbnail, attachment")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Field("file", "is required")
	}
	if fh.Size > MaxUploadBytes {
		return apperr.Field("file", "must be at most 10MB")
	}

	f, err := fh.Open()
	if err != nil {
		return apperr.Internal("open upload", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return apperr.Field("file", "could not be read")
	}
	contentType := http.DetectContentType(head[:n])
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, allowed := allowedUploads[contentType]
	if !allowed {
		return apperr.Field("file", "type "+contentType+" is not allowed")
	}
	if kind != "attachment" && !strings.HasPrefix(contentType, "image/") {
		return apperr.Field("file", "must be an image")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return apperr.Internal("rewind upload", err)
	}

	key := filepath.ToSlash(filepath.Join(kind+"s", actor.ID.String(), uuid.NewString()+ext))
	if err := h.Store.Put(c.UserContext(), key, f, fh.Size, contentType); err != nil {
		return apperr.Internal("store upload", err)
	}
	url, err := h.Store.URL(c.UserContext(), key)
	if err != nil {
		return apperr.Internal("resolve upload url", err)
	}

	if kind == "avatar" {
		if err := h.DB.WithContext(c.UserContext()).Model(&models.User{}).
			Where("id = ?", actor.ID).Update("avatar_url", url).Error; err != nil {
			return db.Wrap(err, "update avatar")
		}
	}

	h.Log.Debug().Str("user_id", actor.ID.String()).Str("key", key).Int64("size", fh.Size).Msg("file uploaded")
	return created(c, fiber.Map{
		"key":          key,
		"url":          url,
		"size":         fh.Size,
		"content_type": contentType,
	})
}
