package keyshopv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodClassification(t *testing.T) {
	assert.Len(t, ServiceDesc.Methods, len(adminMethods)+5)

	for _, m := range ServiceDesc.Methods {
		full := FullMethod(m.MethodName)
		// 全メソッドがどちらか一方にだけ分類される
		assert.NotEqual(t, IsAdminMethod(full), IsUserMethod(full), full)
	}

	assert.True(t, IsUserMethod("/keyshop.v1.KeyShopService/PurchaseKey"))
	assert.True(t, IsAdminMethod("/keyshop.v1.KeyShopService/BanUser"))
	assert.False(t, IsAdminMethod("/grpc.health.v1.Health/Check"))
	assert.False(t, IsUserMethod("/grpc.health.v1.Health/Check"))
}
