package middleware

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Request header keys the auth middleware fills from verified claims. The
// user service issues the tokens; this engine only reads the grants.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderReviewer  = "X-User-Reviewer"
	HeaderSuperuser = "X-User-Superuser"
	HeaderGroups    = "X-User-Groups"
)

func JWTAuth(secret string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			userID, ok := claimInt64(claims, "user_id")
			if !ok || userID == 0 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			ctx.Request.Header.Set(HeaderUserID, strconv.FormatInt(userID, 10))
			if name, ok := claims["name"].(string); ok {
				ctx.Request.Header.Set(HeaderUserName, name)
			}
			ctx.Request.Header.Set(HeaderReviewer, strconv.FormatBool(claimBool(claims, "reviewer")))
			ctx.Request.Header.Set(HeaderSuperuser, strconv.FormatBool(claimBool(claims, "superuser")))
			ctx.Request.Header.Set(HeaderGroups, claimGroups(claims))

			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func claimInt64(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func claimBool(claims jwt.MapClaims, key string) bool {
	v, _ := claims[key].(bool)
	return v
}

func claimGroups(claims jwt.MapClaims) string {
	raw, ok := claims["groups"].([]interface{})
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(raw))
	for _, entry := range raw {
		if id, ok := entry.(float64); ok {
			parts = append(parts, strconv.FormatInt(int64(id), 10))
		}
	}
	return strings.Join(parts, ",")
}
