package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	authapp "keyshop-server/internal/application/auth"
	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	"keyshop-server/internal/domain/user"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorClass struct {
	target error
	status int
	code   string
}

// 上から順に判定する。部分コミットは原因エラー（在庫切れ等）をラップしていることがあるため先頭
var errorClasses = []errorClass{
	{purchase.ErrPartialCommitFailure, http.StatusInternalServerError, "partial_commit_failure"},
	{user.ErrBanned, http.StatusForbidden, "banned"},
	{user.ErrInsufficientFunds, http.StatusConflict, "insufficient_funds"},
	{key.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{purchase.ErrRequestInProgress, http.StatusConflict, "request_in_progress"},
	{key.ErrDuplicateKey, http.StatusConflict, "duplicate_key"},
	{user.ErrAlreadyReferred, http.StatusConflict, "already_referred"},
	{user.ErrSelfReferral, http.StatusBadRequest, "self_referral"},
	{user.ErrVersionConflict, http.StatusConflict, "conflict"},
	{authapp.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
	{errs.ErrValidation, http.StatusBadRequest, "validation_error"},
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

// Classify エラーをHTTPステータスとエラーコードに変換
// 分類できないエラーはfalse
func Classify(err error) (int, string, bool) {
	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			return ec.status, ec.code, true
		}
	}
	return 0, "", false
}

// ErrorHandlerMiddleware ハンドラーが返したエラーをJSONレスポンスに変換
func ErrorHandlerMiddleware(logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			return handleError(c, err, logger)
		}
	}
}

func handleError(c echo.Context, err error, logger *otelinfra.Logger) error {
	ctx := c.Request().Context()
	fields := map[string]interface{}{
		"method": c.Request().Method,
		"path":   c.Path(),
	}

	if status, code, ok := Classify(err); ok {
		message := err.Error()
		if status >= http.StatusInternalServerError {
			logger.Error(ctx, "Request failed", err, fields)
			// 内部IDを含むため詳細は返さない
			if code == "partial_commit_failure" {
				message = "purchase could not be completed, contact support"
			}
		} else {
			fields["error"] = err.Error()
			logger.Warn(ctx, "Request rejected", fields)
		}
		return c.JSON(status, ErrorResponse{
			Error:   code,
			Message: message,
			Code:    code,
		})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		fields["status_code"] = httpErr.Code
		logger.Warn(ctx, "HTTP error", fields)
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		return c.JSON(httpErr.Code, ErrorResponse{
			Error:   http.StatusText(httpErr.Code),
			Message: message,
		})
	}

	logger.Error(ctx, "Internal server error", err, fields)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_server_error",
		Message: "An unexpected error occurred",
	})
}
