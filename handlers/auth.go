package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/izba-pamieci/izbabackend/models"
	"github.com/izba-pamieci/izbabackend/repository"
)

const jwtExpiration = 24 * time.Hour

type AuthHandler struct {
	UserRepo  repository.UserRepositoryInterface
	JWTSecret string
}

func NewAuthHandler(userRepo repository.UserRepositoryInterface, jwtSecret string) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, JWTSecret: jwtSecret}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Login checks staff credentials and issues a signed dashboard token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil || !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	expirationTime := time.Now().Add(jwtExpiration)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "izbabackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		zap.L().Error("failed to sign token", zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to generate token")
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      userForResponse,
		ExpiresAt: expirationTime,
	})
}
