package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	accountapp "keyshop-server/internal/application/account"
	historyapp "keyshop-server/internal/application/history"
	inventoryapp "keyshop-server/internal/application/inventory"
	purchaseapp "keyshop-server/internal/application/purchase"
	referralapp "keyshop-server/internal/application/referral"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	"keyshop-server/internal/presentation/grpc/interceptor"
	"keyshop-server/internal/presentation/grpc/keyshopv1"
)

// IdempotencyKeyMetadata 冪等性キーのメタデータ名（リクエストのidempotency_keyより優先）
const IdempotencyKeyMetadata = "idempotency-key"

// KeyShopHandler gRPCキーショップサービスハンドラー
type KeyShopHandler struct {
	services Services
	logger   *otelinfra.Logger
}

var _ keyshopv1.KeyShopServer = (*KeyShopHandler)(nil)

// NewKeyShopHandler 新しいKeyShopHandlerを作成
func NewKeyShopHandler(services Services, logger *otelinfra.Logger) *KeyShopHandler {
	return &KeyShopHandler{
		services: services,
		logger:   logger,
	}
}

func authenticatedUser(ctx context.Context) (string, error) {
	userID, ok := interceptor.UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "user not authenticated")
	}
	return userID, nil
}

// PurchaseKey キー購入
func (h *KeyShopHandler) PurchaseKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	game, err := requireString(req, "game")
	if err != nil {
		return nil, err
	}
	duration, err := requireString(req, "duration")
	if err != nil {
		return nil, err
	}

	idempotencyKey := stringField(req, "idempotency_key")
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(IdempotencyKeyMetadata); len(values) > 0 && values[0] != "" {
			idempotencyKey = values[0]
		}
	}

	resp, err := h.services.Purchase.PurchaseKey(ctx, &purchaseapp.PurchaseKeyRequest{
		UserID:         userID,
		Game:           game,
		Duration:       duration,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodPurchaseKey, err)
	}

	return newStruct(map[string]interface{}{
		"purchase_id":   resp.PurchaseID,
		"key_id":        resp.KeyID,
		"key":           resp.KeyContent,
		"game":          resp.Game,
		"duration":      resp.Duration,
		"price":         formatInt(resp.Price),
		"balance_after": formatInt(resp.BalanceAfter),
		"created_at":    formatTime(resp.CreatedAt),
		"replayed":      resp.Replayed,
	})
}

// GetProfile 自分のプロフィール取得
func (h *KeyShopHandler) GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.services.Account.GetProfile(ctx, userID)
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodGetProfile, err)
	}

	return newStruct(map[string]interface{}{
		"user_id":     profile.UserID,
		"balance":     formatInt(profile.Balance),
		"referred_by": optionalString(profile.ReferredBy),
		"banned":      profile.Banned,
	})
}

// GetHistory 自分の購入履歴取得
func (h *KeyShopHandler) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := intField(req, "limit", 0)
	if err != nil {
		return nil, err
	}

	resp, err := h.services.History.GetHistory(ctx, &historyapp.GetHistoryRequest{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodGetHistory, err)
	}

	purchases := make([]interface{}, len(resp.Purchases))
	for i, p := range resp.Purchases {
		purchases[i] = map[string]interface{}{
			"purchase_id": p.PurchaseID,
			"key_id":      p.KeyID,
			"game":        p.Game,
			"duration":    p.Duration,
			"price":       formatInt(p.Price),
			"key":         p.KeyContent,
			"created_at":  formatTime(p.CreatedAt),
		}
	}

	return newStruct(map[string]interface{}{
		"user_id":   resp.UserID,
		"purchases": purchases,
		"limit":     resp.Limit,
	})
}

// GetStockReport 在庫レポート取得
func (h *KeyShopHandler) GetStockReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	report, err := h.services.Stock.GetStockReport(ctx)
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodGetStockReport, err)
	}

	items := make([]interface{}, len(report.Items))
	for i, item := range report.Items {
		items[i] = map[string]interface{}{
			"game":      item.Game,
			"duration":  item.Duration,
			"available": item.Available,
		}
	}
	byGame := make(map[string]interface{}, len(report.ByGame))
	for game, durations := range report.ByGame {
		counts := make(map[string]interface{}, len(durations))
		for duration, n := range durations {
			counts[duration] = n
		}
		byGame[game] = counts
	}

	return newStruct(map[string]interface{}{
		"items":   items,
		"by_game": byGame,
		"total":   report.Total,
		"cached":  report.Cached,
	})
}

// RegisterReferral 紹介者の登録
func (h *KeyShopHandler) RegisterReferral(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	referrerID, err := requireString(req, "referrer_id")
	if err != nil {
		return nil, err
	}

	resp, err := h.services.Referral.RegisterReferral(ctx, &referralapp.RegisterReferralRequest{
		UserID:     userID,
		ReferrerID: referrerID,
	})
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodRegisterReferral, err)
	}

	fields := map[string]interface{}{
		"status": string(resp.Status),
		"bonus":  formatInt(resp.Bonus),
	}
	if resp.Status == referralapp.StatusCredited {
		fields["referrer_balance"] = formatInt(resp.ReferrerBalance)
	}
	return newStruct(fields)
}

// AddFunds 残高の付与（運用者）
func (h *KeyShopHandler) AddFunds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireString(req, "user_id")
	if err != nil {
		return nil, err
	}
	amount, err := amountField(req, "amount")
	if err != nil {
		return nil, err
	}

	resp, err := h.services.Account.AddFunds(ctx, &accountapp.AddFundsRequest{
		UserID: userID,
		Amount: amount,
	})
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodAddFunds, err)
	}

	return newStruct(map[string]interface{}{
		"user_id":        resp.UserID,
		"transaction_id": resp.TransactionID,
		"amount":         formatInt(resp.Amount),
		"balance":        formatInt(resp.Balance),
	})
}

// AddKey キー1件の追加（運用者）
func (h *KeyShopHandler) AddKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	item := inventoryapp.KeyItem{
		Game:     stringField(req, "game"),
		Duration: stringField(req, "duration"),
		Content:  stringField(req, "content"),
	}

	resp, err := h.services.Inventory.AddKey(ctx, item)
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodAddKey, err)
	}

	return newStruct(map[string]interface{}{
		"key_id":   resp.KeyID,
		"game":     resp.Game,
		"duration": resp.Duration,
	})
}

// BulkAddKeys キーの一括追加（運用者）
// itemsの配列、またはtextに1行1件の "game|duration|content" を渡す
func (h *KeyShopHandler) BulkAddKeys(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var (
		resp *inventoryapp.BulkAddKeysResponse
		err  error
	)

	if text, ok := req.GetFields()["text"]; ok {
		resp, err = h.services.Inventory.BulkAddKeysFromText(ctx, text.GetStringValue())
	} else {
		list := req.GetFields()["items"].GetListValue().GetValues()
		items := make([]inventoryapp.KeyItem, len(list))
		for i, v := range list {
			s := v.GetStructValue()
			items[i] = inventoryapp.KeyItem{
				Game:     stringField(s, "game"),
				Duration: stringField(s, "duration"),
				Content:  stringField(s, "content"),
			}
		}
		resp, err = h.services.Inventory.BulkAddKeys(ctx, items)
	}
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodBulkAddKeys, err)
	}

	keyIDs := make([]interface{}, len(resp.KeyIDs))
	for i, id := range resp.KeyIDs {
		keyIDs[i] = id
	}
	failures := make([]interface{}, len(resp.Failures))
	for i, f := range resp.Failures {
		failures[i] = map[string]interface{}{
			"line":   f.Line,
			"reason": f.Reason,
		}
	}

	return newStruct(map[string]interface{}{
		"added":    resp.Added,
		"rejected": resp.Rejected,
		"key_ids":  keyIDs,
		"failures": failures,
	})
}

// BanUser ユーザーをBAN（運用者）
func (h *KeyShopHandler) BanUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireString(req, "user_id")
	if err != nil {
		return nil, err
	}
	if err := h.services.Account.BanUser(ctx, userID); err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodBanUser, err)
	}
	return newStruct(map[string]interface{}{"user_id": userID, "banned": true})
}

// UnbanUser BANの解除（運用者）
func (h *KeyShopHandler) UnbanUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireString(req, "user_id")
	if err != nil {
		return nil, err
	}
	if err := h.services.Account.UnbanUser(ctx, userID); err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodUnbanUser, err)
	}
	return newStruct(map[string]interface{}{"user_id": userID, "banned": false})
}

// SearchKey キー内容で検索（運用者）
func (h *KeyShopHandler) SearchKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	content, err := requireString(req, "content")
	if err != nil {
		return nil, err
	}

	view, err := h.services.Inventory.SearchKey(ctx, content)
	if err != nil {
		return nil, h.handleError(ctx, keyshopv1.MethodSearchKey, err)
	}

	fields := map[string]interface{}{
		"key_id":     view.KeyID,
		"game":       view.Game,
		"duration":   view.Duration,
		"content":    view.Content,
		"used":       view.Used,
		"used_by":    optionalString(view.UsedBy),
		"used_at":    nil,
		"created_at": formatTime(view.CreatedAt),
	}
	if view.UsedAt != nil {
		fields["used_at"] = formatTime(*view.UsedAt)
	}
	return newStruct(fields)
}
