package gateway

import "github.com/razorpay/razorpay-go/utils"

// VerifySignature checks the signature the checkout widget hands back after a
// successful payment against "orderID|paymentID" under secret.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, secret)
}
