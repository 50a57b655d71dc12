package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/slotline/slotline/libs/auth"
	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/storage"
)

const sessionTTL = 12 * time.Hour

type StaffStore interface {
	GetByEmail(ctx context.Context, email string) (*model.StaffUser, error)
	Create(ctx context.Context, u *model.StaffUser) (string, error)
}

type claimsKey struct{}

func staffClaims(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token      string `json:"token"`
	LocationID string `json:"location_id"`
	Role       string `json:"role"`
}

// Login handles POST /api/auth/login. Unknown email and wrong password are
// indistinguishable to the caller.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.staff.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:        user.ID,
		LocationID: user.LocationID,
		Role:       user.Role,
		Iat:        now.Unix(),
		Exp:        now.Add(sessionTTL).Unix(),
	}, h.secret)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:      token,
		LocationID: user.LocationID,
		Role:       user.Role,
	})
}

type createStaffRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,max=128"`
	Role     string `json:"role" validate:"required,oneof=owner staff"`
}

// CreateStaff handles POST /api/staff/locations/{locationID}/staff.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req createStaffRequest
	if !h.decode(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	id, err := h.staff.Create(r.Context(), &model.StaffUser{
		LocationID:   locationID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			httpx.WriteError(w, http.StatusConflict, "email already registered")
			return
		}
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"staff_id": id})
}

// RequireStaff gates the staff API. The claims land in the request context
// for handlers that need the actor or their location.
func (h *Handler) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, h.secret)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOwner additionally restricts a route to the owner role.
func (h *Handler) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := staffClaims(r.Context())
		if claims == nil || claims.Role != "owner" {
			httpx.WriteError(w, http.StatusForbidden, "owner role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
