package handlers

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tanpii/sportly-back/internal/repository"
	"github.com/tanpii/sportly-back/internal/services"
)

const (
	maxPhotoSizeBytes = 5 * 1024 * 1024
	photoFolder       = "profile_photos"
)

var allowedPhotoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type ProfileHandler struct {
	userRepo *repository.UserRepository
	storage  services.StorageService
}

func NewProfileHandler(userRepo *repository.UserRepository, storage services.StorageService) *ProfileHandler {
	return &ProfileHandler{userRepo: userRepo, storage: storage}
}

// UploadPhoto replaces the caller's profile photo. The previous object, if
// any, is deleted best-effort after the new URL is stored.
func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	userID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if h.storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is empty"})
	}
	if fileHeader.Size > maxPhotoSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file exceeds 5MB limit"})
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedPhotoExtensions[ext] {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "file must be a jpg, png, or webp image"})
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}
	defer file.Close()

	url, err := h.storage.UploadFile(c.Context(), file, buildPhotoObjectName(fileHeader.Filename), photoFolder)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to upload profile photo"})
	}

	if err := h.userRepo.UpdateProfilePhoto(c.Context(), userID, url); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to store profile photo"})
	}

	if user.ProfilePhotoURL != nil && *user.ProfilePhotoURL != url {
		_ = h.storage.DeleteFile(c.Context(), *user.ProfilePhotoURL)
	}

	return c.JSON(fiber.Map{"url": url})
}

func buildPhotoObjectName(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}
