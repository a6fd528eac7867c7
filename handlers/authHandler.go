package handlers

import (
	"Medicare/apperrors"
	"Medicare/middlewares"
	"Medicare/models"
	"Medicare/services"
	"Medicare/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type AuthHandler struct {
	service *services.HospitalService
}

func NewAuthHandler(service *services.HospitalService) *AuthHandler {
	return &AuthHandler{service: service}
}

type registerRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type resetCodeRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a hospital account
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
		return
	}

	hospital := models.Hospital{
		Name:     req.Name,
		Address:  req.Address,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	if err := h.service.Register(c.Request.Context(), &hospital); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{
		"message":     "Hospital registered",
		"hospital_id": hospital.ID,
		"name":        hospital.Name,
	}, http.StatusCreated)
}

// Login checks the credentials and hands out an access token both in the
// body and as a cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		middlewares.RespondError(c, apperrors.Validation("email and password are required"))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			middlewares.HttpError(c, "Invalid email or password", http.StatusUnauthorized, err)
			return
		}
		middlewares.RespondError(c, err)
		return
	}

	utils.SetAuthCookie(c, result.AccessToken, h.service.TokenIssuer().Expiry())
	middlewares.RespondJSON(c, result, http.StatusOK)
}

// Logout clears the auth cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.ClearAuthCookie(c)
	middlewares.RespondJSON(c, gin.H{"message": "Logged out"}, http.StatusOK)
}

// Profile returns the hospital behind the access token
func (h *AuthHandler) Profile(c *gin.Context) {
	hospitalID, err := middlewares.HospitalIDFromContext(c.Request.Context())
	if err != nil {
		middlewares.HttpError(c, "Missing access token", http.StatusUnauthorized, err)
		return
	}
	hospital, err := h.service.GetByID(c.Request.Context(), hospitalID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, hospital, http.StatusOK)
}

// SendResetCode mails a password reset code. The answer is the same whether
// or not the email is registered.
func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var req resetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
		return
	}
	if err := h.service.SendResetCode(c.Request.Context(), req.Email); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{"message": "If the email is registered, a reset code was sent"}, http.StatusOK)
}

// ChangePassword sets a new password using a reset code
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middlewares.HttpError(c, "Invalid request body", http.StatusBadRequest, err)
		return
	}
	err := h.service.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrInvalidResetCode) {
			middlewares.HttpError(c, "Invalid reset code", http.StatusUnauthorized, err)
			return
		}
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondJSON(c, gin.H{"message": "Password changed"}, http.StatusOK)
}
