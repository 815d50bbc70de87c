package handler

import (
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// float64で誤差なく表せる整数の上限
const maxExactInteger = 1 << 53

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func requireString(req *structpb.Struct, name string) (string, error) {
	s := stringField(req, name)
	if s == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return s, nil
}

// amountField 金額を取り出す。10進文字列と整数値の数値を受け付ける
func amountField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(kind.StringValue), 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s format", name)
		}
		return n, nil
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s format", name)
		}
		return int64(f), nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s format", name)
	}
}

// intField 省略時はdef。負数と小数は不正
func intField(req *structpb.Struct, name string, def int) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return def, nil
	}
	var n int64
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if kind.NumberValue != math.Trunc(kind.NumberValue) || math.Abs(kind.NumberValue) > math.MaxInt32 {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
		}
		n = int64(kind.NumberValue)
	case *structpb.Value_StringValue:
		parsed, err := strconv.ParseInt(strings.TrimSpace(kind.StringValue), 10, 32)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
		}
		n = parsed
	case *structpb.Value_NullValue:
		return def, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
	}
	if n < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
	}
	return int(n), nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// newStruct レスポンスを組み立てる
func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return s, nil
}
