package models

// PaymentOutcome is the normalized business result of a gateway confirmation.
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
	PaymentOutcomePending PaymentOutcome = "pending"
)

// Confirmation sources.
const (
	ConfirmationSourceWebhook  = "webhook"
	ConfirmationSourceCallback = "callback"
)

// Confirmation carries a payment confirmation from either a server-to-server
// notification or a client-submitted callback.
type Confirmation struct {
	Source         string
	OrderID        string
	GatewayOrderID string
	PaymentID      string
	Signature      string
	RawStatus      string
	PaymentGroup   string
	UPIID          string
	CardNumber     string
}

// LookupID is the identifier used to find the local order.
func (c Confirmation) LookupID() string {
	if c.OrderID != "" {
		return c.OrderID
	}
	return c.GatewayOrderID
}

// Verification is the adapter's verdict on a Confirmation.
type Verification struct {
	Authentic           bool
	Outcome             PaymentOutcome
	PaymentMode         string
	PaymentMethodDetail string
}

// PaymentSession is what a gateway returns when a remote order is created.
type PaymentSession struct {
	Gateway        string `json:"gateway"`
	GatewayOrderID string `json:"gatewayOrderId"`
	SessionToken   string `json:"sessionToken,omitempty"`
	PublicKey      string `json:"keyId,omitempty"`
}
