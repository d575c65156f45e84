package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// AvatarField is the multipart form field holding the avatar image.
const AvatarField = "avatar"

// ProfileHandler handles HTTP requests for the current user's profile.
type ProfileHandler struct {
	service  *services.ProfileService
	validate *validator.Validate
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the profile routes. The router must require authentication.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	profileRoutes := router.Group("/profile")
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Patch("/", h.HandleUpdateProfile)
	profileRoutes.Put("/avatar", h.HandleUploadAvatar)
	profileRoutes.Delete("/avatar", h.HandleDeleteAvatar)
}

func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	view, err := h.service.GetProfile(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, "Could not retrieve profile", err)
	}
	return c.JSON(view)
}

// UpdateProfileRequest holds the editable profile fields; omitted fields are kept.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=man woman"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Info        *string `json:"info" validate:"omitempty,max=2000"`
}

func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	upd := services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Info:      req.Info,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *req.DateOfBirth)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid date of birth",
				"error":   err.Error(),
			})
		}
		upd.DateOfBirth = &dob
	}

	view, err := h.service.UpdateProfile(c.UserContext(), middleware.CurrentUserID(c), upd)
	if err != nil {
		return fail(c, "Could not update profile", err)
	}
	return c.JSON(view)
}

// HandleUploadAvatar stores the image of the multipart "avatar" field.
func (h *ProfileHandler) HandleUploadAvatar(c *fiber.Ctx) error {
	header, err := c.FormFile(AvatarField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "An avatar file is required",
			"error":   err.Error(),
		})
	}
	file, err := header.Open()
	if err != nil {
		return fail(c, "Could not read avatar", err)
	}
	defer file.Close()

	view, err := h.service.UploadAvatar(
		c.UserContext(),
		middleware.CurrentUserID(c),
		header.Filename,
		header.Header.Get(fiber.HeaderContentType),
		header.Size,
		file,
	)
	if err != nil {
		return fail(c, "Could not upload avatar", err)
	}
	return c.JSON(view)
}

func (h *ProfileHandler) HandleDeleteAvatar(c *fiber.Ctx) error {
	if err := h.service.DeleteAvatar(c.UserContext(), middleware.CurrentUserID(c)); err != nil {
		return fail(c, "Could not delete avatar", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
