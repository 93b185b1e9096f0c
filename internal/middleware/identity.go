package middleware

import "github.com/labstack/echo/v4"

const userIDKey = "user_id"

// CurrentUserID returns the directory identity stored by JWTAuth, or ""
// for unauthenticated requests.
func CurrentUserID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok {
		return s
	}
	return ""
}

// rateIdentity is the identity used in rate limit keys.
func rateIdentity(c echo.Context) string {
	if id := CurrentUserID(c); id != "" {
		return id
	}
	return "anon"
}
