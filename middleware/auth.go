package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dutyfinder/dutyfinder-api/config"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextUserID = "user_id"
	contextClaims = "validated_claims"
)

// CustomClaims contains the intranet specific claims of an access token.
type CustomClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Validate rejects tokens that carry an unknown role.
func (c CustomClaims) Validate(ctx context.Context) error {
	if !models.Role(c.Role).IsValid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// HasRole checks whether the token grants one of the roles. SUPER_ADMIN holds every role.
func (c CustomClaims) HasRole(roles ...models.Role) bool {
	if models.Role(c.Role) == models.RoleSuperAdmin {
		return true
	}
	for _, role := range roles {
		if models.Role(c.Role) == role {
			return true
		}
	}
	return false
}

// NewTokenValidator builds the HS256 validator shared by the HTTP middleware and the event stream.
func NewTokenValidator(secret string) (*validator.Validator, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(secret), nil
	}

	return validator.New(
		keyFunc,
		validator.HS256,
		config.TokenIssuer,
		[]string{config.TokenAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(jwtValidator *validator.Validator, log *zap.Logger) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Info("Rejected access token", zap.String("path", r.URL.Path), zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Warn("Failed to write error response", zap.Error(writeErr))
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			// EventSource cannot send headers, the stream passes the token in the query string
			jwtmiddleware.ParameterTokenExtractor("access_token"),
		)),
	)

	return func(c *gin.Context) {
		validated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			validated = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(contextUserID, token.RegisteredClaims.Subject)
			c.Set(contextClaims, token)
			c.Request = r

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !validated {
			c.Abort()
		}
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(contextUserID)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(contextClaims)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetCustomClaims returns the name and role carried by the token
func GetCustomClaims(c *gin.Context) (*CustomClaims, error) {
	claims, err := GetClaims(c)
	if err != nil {
		return nil, err
	}
	custom, ok := claims.CustomClaims.(*CustomClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}
	return custom, nil
}

// RequireRole is a middleware that lets through only the listed roles (and SUPER_ADMIN)
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		custom, err := GetCustomClaims(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_CLAIMS",
					"message": "Could not retrieve token claims",
				},
			})
			c.Abort()
			return
		}

		if !custom.HasRole(roles...) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Insufficient permissions to access this resource",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
