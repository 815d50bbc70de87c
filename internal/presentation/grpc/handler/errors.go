package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	"keyshop-server/internal/domain/user"
)

// ErrorCodeTrailer エラーコードを返すトレーラー名
const ErrorCodeTrailer = "error-code"

type errorClass struct {
	target error
	code   codes.Code
	reason string
}

// 上から順に判定する。部分コミットは原因エラーをラップしていることがあるため先頭
var errorClasses = []errorClass{
	{purchase.ErrPartialCommitFailure, codes.DataLoss, "partial_commit_failure"},
	{user.ErrBanned, codes.PermissionDenied, "banned"},
	{user.ErrInsufficientFunds, codes.FailedPrecondition, "insufficient_funds"},
	{key.ErrOutOfStock, codes.FailedPrecondition, "out_of_stock"},
	{purchase.ErrRequestInProgress, codes.Aborted, "request_in_progress"},
	{key.ErrDuplicateKey, codes.AlreadyExists, "duplicate_key"},
	{user.ErrAlreadyReferred, codes.AlreadyExists, "already_referred"},
	{user.ErrSelfReferral, codes.InvalidArgument, "self_referral"},
	{user.ErrVersionConflict, codes.Aborted, "conflict"},
	{errs.ErrValidation, codes.InvalidArgument, "validation_error"},
	{errs.ErrNotFound, codes.NotFound, "not_found"},
	{errs.ErrStorageUnavailable, codes.Unavailable, "storage_unavailable"},
}

// errorToStatus エラーをgRPCステータスと理由コードに変換
func errorToStatus(err error) (*status.Status, string) {
	if st, ok := status.FromError(err); ok {
		return st, ""
	}
	for _, ec := range errorClasses {
		if !errors.Is(err, ec.target) {
			continue
		}
		message := err.Error()
		if ec.target == purchase.ErrPartialCommitFailure {
			message = "purchase could not be completed, contact support"
		}
		return status.New(ec.code, message), ec.reason
	}
	return status.New(codes.Internal, "internal server error"), "internal_server_error"
}

// handleError エラーをgRPCステータスに変換し、理由コードをトレーラーで返す
func (h *KeyShopHandler) handleError(ctx context.Context, method string, err error) error {
	st, reason := errorToStatus(err)

	fields := map[string]interface{}{
		"method": method,
		"code":   st.Code().String(),
	}
	if reason != "" {
		fields["reason"] = reason
		// トレーラー設定の失敗はステータスに影響させない
		_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorCodeTrailer, reason))
	}

	switch st.Code() {
	case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
		h.logger.Error(ctx, "gRPC request failed", err, fields)
	default:
		fields["error"] = err.Error()
		h.logger.Warn(ctx, "gRPC request rejected", fields)
	}
	return st.Err()
}
