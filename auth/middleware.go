package auth

import (
	"collaborative-review-editor/internal/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

type Auth struct {
	InternalSecret string
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		parsedToken, err := VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		identity, err := GetIdentityFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set("user_id", identity.UserID)
		ctx.Set("user_name", identity.UserName)
		ctx.Set("user_email", identity.UserEmail)
		ctx.Set("jwt_token", token)
		ctx.Next()
	}
}

func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if token != m.InternalSecret {
			ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
