package handler

import (
	"net/http"

	"salvage-auction-engine/internal/adapter/http/dto"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/pkg/apperror"
	"salvage-auction-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints. Vendor onboarding happens
// outside this system, so there is no register route.
type AuthHandler struct {
	authSvc ports.AuthService
	otpSvc  ports.OTPVerifier
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService, otpSvc ports.OTPVerifier) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, otpSvc: otpSvc}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// SendOTP handles POST /api/v1/auth/otp. Issues the bid confirmation code.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.otpSvc.Send(c.Request.Context(), req.Phone); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"sent": true})
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
