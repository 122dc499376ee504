package middlewares

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"festreg/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

// AdminAuth guards the coordinator dashboard routes. The token comes
// either from the admin session cookie or a bearer header; the backend
// remains the authority on what the role is allowed to do.
func AdminAuth(ctx *gin.Context) {
	token := ""
	if cookie, err := ctx.Cookie("admin_token"); err == nil {
		token = cookie
	}
	if token == "" {
		bearer := ctx.GetHeader("Authorization")
		if strings.HasPrefix(bearer, "Bearer ") {
			token = strings.TrimPrefix(bearer, "Bearer ")
		}
	}
	if token == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return jwtKey, nil
	})
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		if errors.Is(err, jwt.ErrSignatureInvalid) || errors.Is(err, jwt.ErrTokenMalformed) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if !tkn.Valid {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if claims.Role != "admin" && claims.Role != "coordinator" {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not enough permissions"})
		return
	}
	ctx.Set("username", claims.Username)
	ctx.Set("role", claims.Role)
}

// SecureHeaders sets the usual response hardening headers.
func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
}
