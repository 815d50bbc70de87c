package notification

import (
	"fmt"
)

// ReferralCredited 紹介ボーナス付与の通知文
func ReferralCredited(newUserID string, bonus int64) string {
	return fmt.Sprintf("New referral: user %s joined with your link. Bonus credited: %d.", newUserID, bonus)
}

// Banned BAN通知文
func Banned() string {
	return "You have been banned."
}

// Unbanned BAN解除通知文
func Unbanned() string {
	return "Your ban has been lifted."
}

// FundsAdded 入金通知文
func FundsAdded(amount, balance int64) string {
	return fmt.Sprintf("Your balance was topped up by %d. Current balance: %d.", amount, balance)
}
