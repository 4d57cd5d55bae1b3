package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

// SessionTTL is how long an anonymous client token stays valid.
const SessionTTL = 30 * 24 * time.Hour

var errInvalidClient = errors.New("invalid client id in token")

// JWTAuth issues and verifies anonymous client tokens. A client ID plays the
// role of the browser's local storage partition.
type JWTAuth struct {
	Secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

// GenerateClientToken creates a token for a fresh client ID.
func (j *JWTAuth) GenerateClientToken(clientID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"client_id": clientID.String(),
		"exp":       now.Add(SessionTTL).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ParseClientToken verifies a token and returns its client ID.
func (j *JWTAuth) ParseClientToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	clientIDStr, ok := claims["client_id"].(string)
	if !ok {
		return uuid.Nil, errInvalidClient
	}
	clientID, err := uuid.Parse(clientIDStr)
	if err != nil {
		return uuid.Nil, errInvalidClient
	}
	return clientID, nil
}

// Middleware validates the bearer token and attaches client_id to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		clientID, err := j.ParseClientToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := WithClientID(r.Context(), clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithClientID(ctx context.Context, clientID uuid.UUID) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

// GetClientID extracts client_id from request context
func GetClientID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ClientIDKey).(uuid.UUID)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
