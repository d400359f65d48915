package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Context key for device data
type contextKey string

const deviceContextKey contextKey = "device"

// JWTClaims represents the claims in the JWT token
type JWTClaims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id"`
}

// withAuth is middleware that requires valid JWT authentication
func (r *Router) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		// Get token from Authorization header
		authHeader := req.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, `{"error": "missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		// Expect "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, `{"error": "invalid authorization format"}`, http.StatusUnauthorized)
			return
		}

		deviceID, err := r.parseToken(parts[1])
		if err != nil {
			http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(req.Context(), deviceContextKey, deviceID)
		next.ServeHTTP(w, req.WithContext(ctx))
	}
}

// parseToken validates a JWT and returns the device ID it carries.
func (r *Router) parseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.DeviceID == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.DeviceID, nil
}

// getDeviceID extracts the authenticated device from context
func getDeviceID(ctx context.Context) string {
	deviceID, _ := ctx.Value(deviceContextKey).(string)
	return deviceID
}

// generateJWT creates a new JWT token for a device
func (r *Router) generateJWT(deviceID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(r.cfg.JWTExpiry)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		DeviceID: deviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(r.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// randomID generates a random hex identifier for devices and sessions.
func randomID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// handleIssueToken provisions a device JWT. The caller proves it is a
// legitimate client build by presenting the shared provisioning key;
// there are no user accounts.
func (r *Router) handleIssueToken(w http.ResponseWriter, req *http.Request) {
	if r.cfg.ProvisioningKey == "" {
		r.logger.Printf("auth: provisioning key not configured")
		http.Error(w, `{"error": "provisioning not configured"}`, http.StatusServiceUnavailable)
		return
	}

	key := req.Header.Get("X-Provisioning-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(r.cfg.ProvisioningKey)) != 1 {
		http.Error(w, `{"error": "invalid provisioning key"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		DeviceID string `json:"device_id"`
	}
	// Body is optional; a fresh device has no ID yet.
	_ = json.NewDecoder(req.Body).Decode(&body)

	deviceID := body.DeviceID
	isNew := false
	if deviceID == "" {
		deviceID = randomID()
		isNew = true
	}

	token, expiresAt, err := r.generateJWT(deviceID)
	if err != nil {
		r.logger.Printf("auth: failed to generate JWT: %v", err)
		http.Error(w, `{"error": "failed to create token"}`, http.StatusInternalServerError)
		return
	}

	r.logger.Printf("auth: issued token for device %s (new: %v)", deviceID, isNew)

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"device_id":  deviceID,
		"is_new":     isNew,
	})
}
