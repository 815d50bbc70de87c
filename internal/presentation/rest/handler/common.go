package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	restmiddleware "keyshop-server/internal/presentation/rest/middleware"
)

// ErrorResponse エラーレスポンス
// @Description エラーレスポンス
type ErrorResponse = restmiddleware.ErrorResponse

// tokenUserID 認証ミドルウェアが設定したユーザーID
func tokenUserID(c echo.Context) (string, error) {
	userID, ok := restmiddleware.UserIDFrom(c)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "user_id not found in token")
	}
	return userID, nil
}

// pathUserID パスパラメータのユーザーID
func pathUserID(c echo.Context) (string, error) {
	userID := c.Param("user_id")
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	return userID, nil
}

// queryInt 整数のクエリパラメータ（未指定ならdef、負数は不正）
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" parameter")
	}
	return v, nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
