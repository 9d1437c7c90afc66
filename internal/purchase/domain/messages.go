package domain

import "errors"

// Message is the user-facing rendition of a purchase failure: a short title,
// an explanation and a single primary action. Cancellation never produces a
// message.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

const (
	ActionRetry     = "retry"
	ActionOK        = "ok"
	ActionSupport   = "support"
	ActionUseCredit = "use_credit"
	ActionWait      = "wait"
)

// MessageFor maps a gateway error to its user-facing message. Returns false
// for errors that should stay silent or fall through to generic handling.
func MessageFor(err error) (Message, bool) {
	switch {
	case errors.Is(err, ErrNetwork):
		return Message{
			Title:       "Connection Problem",
			Description: "The store could not be reached. Check your connection and try again.",
			Action:      ActionRetry,
		}, true
	case errors.Is(err, ErrVerificationExhausted):
		return Message{
			Title:       "Purchase Could Not Be Verified",
			Description: "Verification keeps failing for this purchase. Please contact support.",
			Action:      ActionSupport,
		}, true
	case errors.Is(err, ErrVerificationFailed):
		return Message{
			Title:       "Purchase Verification Failed",
			Description: "The purchase could not be verified. No charge was applied. Try again.",
			Action:      ActionRetry,
		}, true
	case errors.Is(err, ErrProductUnavailable):
		return Message{
			Title:       "Product Unavailable",
			Description: "This product is not available right now. Please try again later.",
			Action:      ActionOK,
		}, true
	case errors.Is(err, ErrPaymentDeclined):
		return Message{
			Title:       "Payment Declined",
			Description: "Your payment method was declined. Update it and try again.",
			Action:      ActionOK,
		}, true
	case errors.Is(err, ErrRestoreFailed):
		return Message{
			Title:       "Restore Failed",
			Description: "Purchases could not be restored. You can keep using the app and retry.",
			Action:      ActionRetry,
		}, true
	case errors.Is(err, ErrCreditStillAvailable):
		return Message{
			Title:       "Credit Still Available",
			Description: "You already have an unused report credit for this category.",
			Action:      ActionUseCredit,
		}, true
	case errors.Is(err, ErrPurchaseInFlight):
		return Message{
			Title:       "Purchase in Progress",
			Description: "Another purchase is still being processed. Please wait a moment.",
			Action:      ActionWait,
		}, true
	default:
		return Message{}, false
	}
}
