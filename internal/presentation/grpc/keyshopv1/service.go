// Package keyshopv1 keyshop.v1.KeyShopService のサービス定義
//
// リクエスト・レスポンスは google.protobuf.Struct で表現する。
// 金額はJSONの数値精度を避けるため10進文字列で受け渡す。
package keyshopv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPCサービス名
const ServiceName = "keyshop.v1.KeyShopService"

// メソッド名
const (
	MethodPurchaseKey      = "PurchaseKey"
	MethodGetProfile       = "GetProfile"
	MethodGetHistory       = "GetHistory"
	MethodGetStockReport   = "GetStockReport"
	MethodRegisterReferral = "RegisterReferral"
	MethodAddFunds         = "AddFunds"
	MethodAddKey           = "AddKey"
	MethodBulkAddKeys      = "BulkAddKeys"
	MethodBanUser          = "BanUser"
	MethodUnbanUser        = "UnbanUser"
	MethodSearchKey        = "SearchKey"
)

// FullMethod "/keyshop.v1.KeyShopService/Method" 形式のメソッド名
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// adminMethods 運用者APIキーが必要なメソッド（それ以外はJWTが必要）
var adminMethods = map[string]bool{
	FullMethod(MethodAddFunds):    true,
	FullMethod(MethodAddKey):      true,
	FullMethod(MethodBulkAddKeys): true,
	FullMethod(MethodBanUser):     true,
	FullMethod(MethodUnbanUser):   true,
	FullMethod(MethodSearchKey):   true,
}

// IsAdminMethod 運用者向けメソッドか
func IsAdminMethod(fullMethod string) bool {
	return adminMethods[fullMethod]
}

// IsUserMethod エンドユーザー向けメソッドか
func IsUserMethod(fullMethod string) bool {
	switch fullMethod {
	case FullMethod(MethodPurchaseKey),
		FullMethod(MethodGetProfile),
		FullMethod(MethodGetHistory),
		FullMethod(MethodGetStockReport),
		FullMethod(MethodRegisterReferral):
		return true
	}
	return false
}

// KeyShopServer サーバー側の実装が満たすインターフェース
type KeyShopServer interface {
	PurchaseKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetStockReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RegisterReferral(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddFunds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BulkAddKeys(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BanUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UnbanUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SearchKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv KeyShopServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(KeyShopServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(KeyShopServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc keyshop.v1.KeyShopService のサービス記述子
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KeyShopServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodPurchaseKey, KeyShopServer.PurchaseKey),
		unaryMethod(MethodGetProfile, KeyShopServer.GetProfile),
		unaryMethod(MethodGetHistory, KeyShopServer.GetHistory),
		unaryMethod(MethodGetStockReport, KeyShopServer.GetStockReport),
		unaryMethod(MethodRegisterReferral, KeyShopServer.RegisterReferral),
		unaryMethod(MethodAddFunds, KeyShopServer.AddFunds),
		unaryMethod(MethodAddKey, KeyShopServer.AddKey),
		unaryMethod(MethodBulkAddKeys, KeyShopServer.BulkAddKeys),
		unaryMethod(MethodBanUser, KeyShopServer.BanUser),
		unaryMethod(MethodUnbanUser, KeyShopServer.UnbanUser),
		unaryMethod(MethodSearchKey, KeyShopServer.SearchKey),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keyshop/v1/keyshop.proto",
}

// RegisterKeyShopServer サービスを登録
func RegisterKeyShopServer(s grpc.ServiceRegistrar, srv KeyShopServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client keyshop.v1.KeyShopService のクライアント
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 新しいクライアントを作成
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call 指定メソッドを呼び出す
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
