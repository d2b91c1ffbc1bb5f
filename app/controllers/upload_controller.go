package controllers

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarcChevalier/Tastevin/app/repository"
	"github.com/MarcChevalier/Tastevin/internal/pkg/imageprocessor"
	"github.com/MarcChevalier/Tastevin/internal/pkg/storage"
	"github.com/MarcChevalier/Tastevin/internal/pkg/usercontext"
)

// MaxPhotoSize is the upload limit for label photos (10 MB)
const MaxPhotoSize = 10 * 1024 * 1024

// HandleNotePhotoUpload attaches a label photo to a tasting note. The
// original is stored alongside a JPEG thumbnail, and the EXIF capture
// date, when present, is recorded on the note.
func HandleNotePhotoUpload(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	noteID, err := parseUintParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_id", "note id must be numeric")
	}

	notes := repository.GetGlobalFactory().GetTastingNoteRepository()
	note, err := notes.GetByID(noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "tasting note not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load tasting note")
	}
	if note.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "you can only upload photos for your own notes")
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "missing_file", "multipart field 'photo' is required")
	}
	if fileHeader.Size > MaxPhotoSize {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "file_too_large", "label photos are limited to 10 MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to read uploaded file")
	}

	photo, err := imageprocessor.Decode(data)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_image", "uploaded file is not a supported image")
	}

	thumb, err := photo.Thumbnail()
	if err != nil {
		log.Errorf("[Upload] Failed to render thumbnail for note %d: %v", note.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to process image")
	}

	store, err := storage.Default()
	if err != nil {
		log.Errorf("[Upload] Photo storage unavailable: %v", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "photo storage is not available")
	}

	now := time.Now()
	photoUUID := uuid.NewString()
	objectKey := store.Config().PhotoKey(photoUUID, photo.Extension(), now.Year(), int(now.Month()))
	thumbKey := store.Config().ThumbnailKey(photoUUID, now.Year(), int(now.Month()))

	ctx := c.Context()
	if err := store.PutObject(ctx, objectKey, photo.ContentType, data); err != nil {
		log.Errorf("[Upload] Failed to store label photo for note %d: %v", note.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "storage_failed", "failed to store label photo")
	}
	if err := store.PutObject(ctx, thumbKey, "image/jpeg", thumb); err != nil {
		log.Errorf("[Upload] Failed to store thumbnail for note %d: %v", note.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "storage_failed", "failed to store label photo")
	}

	note.LabelPhoto = store.ObjectURL(objectKey)
	note.PhotoTakenAt = imageprocessor.ExtractCaptureDate(data)
	if err := notes.Update(note); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to update tasting note")
	}

	return c.JSON(fiber.Map{
		"note_id":        note.ID,
		"photo_url":      note.LabelPhoto,
		"thumbnail_url":  store.ObjectURL(thumbKey),
		"width":          photo.Width,
		"height":         photo.Height,
		"photo_taken_at": formatTimePtr(note.PhotoTakenAt),
	})
}
