package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hopebridge/donor-portal/internal/platform/httpx"
)

// DevHandler lets a developer switch the active identity of the parity
// store. It must only be mounted in dev-bypass mode.
type DevHandler struct {
	logger    *slog.Logger
	switcher  IdentitySwitcher
	validator *validator.Validate
}

// NewDevHandler constructs a DevHandler.
func NewDevHandler(logger *slog.Logger, switcher IdentitySwitcher) *DevHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevHandler{logger: logger, switcher: switcher, validator: httpx.NewValidator()}
}

// MountRoutes registers GET and POST /identity.
func (h *DevHandler) MountRoutes(r chi.Router) {
	r.Get("/identity", h.current)
	r.Post("/identity", h.switchIdentity)
}

type identityRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

type identityResponse struct {
	UserID string `json:"user_id"`
}

func (h *DevHandler) current(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, identityResponse{UserID: h.switcher.ActiveIdentity()})
}

func (h *DevHandler) switchIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.switcher.SetActiveIdentity(req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("dev identity switched", slog.String("user_id", req.UserID))
	httpx.JSON(w, http.StatusOK, identityResponse{UserID: req.UserID})
}
