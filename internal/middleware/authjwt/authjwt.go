package authjwt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kickback/api/internal/pkg/log"
	"github.com/kickback/api/internal/types"
)

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// The claim key where the user profile is stored.
	ClaimKey string
	// The context key to store the UserContext.
	UserCtxName string
}

// New creates a new middleware handler.
func New(cfg Config) fiber.Handler {
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKey))
	if err != nil {
		panic(fmt.Sprintf("failed to parse EC public key: %v", err))
	}
	if cfg.ClaimKey == "" {
		cfg.ClaimKey = "claim"
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		var tokenString string

		authHeader := c.Get(types.HeaderAuthorization)
		if strings.HasPrefix(authHeader, types.BearerPrefix) {
			tokenString = strings.TrimPrefix(authHeader, types.BearerPrefix)
		}
		// Server-rendered pages send the session cookie instead
		if tokenString == "" {
			tokenString = c.Cookies("access_token")
		}
		if tokenString == "" {
			return unauthorized(c, "Missing or invalid JWT", "")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return ecPublicKey, nil
		}, jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			details := ""
			if err != nil {
				details = err.Error()
			}
			return unauthorized(c, "Invalid token", details)
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid token", "")
		}

		claimData, ok := claims[cfg.ClaimKey].(map[string]interface{})
		if !ok {
			return unauthorized(c, "Invalid token claim format", "")
		}

		userCtx, err := mapToUserContext(claimData)
		if err != nil {
			return unauthorized(c, "Invalid user context in token", err.Error())
		}

		c.Locals(cfg.UserCtxName, userCtx)
		c.SetUserContext(log.WithUserID(c.UserContext(), userCtx.UserID.String()))
		return c.Next()
	}
}

// UserFromCtx returns the authenticated user stored by the middleware
func UserFromCtx(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok || user.UserID == uuid.Nil {
		return types.UserContext{}, false
	}
	return user, true
}

func unauthorized(c *fiber.Ctx, message, details string) error {
	body := fiber.Map{
		"code":    "UNAUTHORIZED",
		"message": message,
	}
	if details != "" {
		body["details"] = details
	}
	return c.Status(fiber.StatusUnauthorized).JSON(body)
}

// mapToUserContext converts claim data to UserContext
func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var userCtx types.UserContext

	userIDStr, ok := claimData[types.HeaderUID].(string)
	if !ok {
		return userCtx, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user ID: %v", err)
	}
	userCtx.UserID = userID

	if email, ok := claimData["email"].(string); ok {
		userCtx.Email = email
	}
	if firstName, ok := claimData["firstName"].(string); ok {
		userCtx.FirstName = firstName
	}
	if lastName, ok := claimData["lastName"].(string); ok {
		userCtx.LastName = lastName
	}
	if nickname, ok := claimData["nickname"].(string); ok {
		userCtx.Nickname = nickname
	}
	if avatar, ok := claimData["avatar"].(string); ok {
		userCtx.Avatar = avatar
	}
	if role, ok := claimData["role"].(string); ok {
		userCtx.Role = role
	}

	return userCtx, nil
}
