package models

import "time"

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentStatusNotPaid  PaymentStatus = "not_paid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// OrderStatus tracks the fulfilment side of an order.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "placed"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

const (
	DeliveryStatusPending = "pending"
	ReturnStatusNone      = "none"
	DeliveryMethodDefault = "standard"
)

// Order ID prefixes.
const (
	OrderPrefixOnline = "ORDER"
	OrderPrefixCOD    = "COD"
)

// Customer is the contact attached to an order.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Pincode string `json:"pincode"`
}

// Address is the delivery address of an order.
type Address struct {
	Name      string   `json:"name"`
	Apartment string   `json:"apartment"`
	Street    string   `json:"street"`
	Type      string   `json:"type"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Pincode   string   `json:"pincode"`
	Address   string   `json:"address"`
}

// DeliverySlot is the customer's chosen delivery time, e.g. {"7:00", "PM"}.
type DeliverySlot struct {
	Time     string `json:"time"`
	Meridiem string `json:"meridiem"`
}

// ValidatedLineItem is a cart line after it has been checked against the catalog.
// LineTotal = UnitPrice x normalized quantity (grams are divided by 1000 for weight items).
type ValidatedLineItem struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	ImageURL      string  `json:"imageUrl"`
	UnitPrice     float64 `json:"unitPrice"`
	Quantity      float64 `json:"quantity"`
	LineTotal     float64 `json:"lineTotal"`
	QuantityType  string  `json:"quantityType"`
	QuantityLabel string  `json:"quantityLabel"`
}

// ChargeBreakdown lists every charge added on top of the subtotal.
type ChargeBreakdown struct {
	Delivery float64 `json:"delivery"`
	Handling float64 `json:"handling"`
	GST      float64 `json:"gst"`
	Platform float64 `json:"platform"`
	Tip      float64 `json:"tip"`
	Discount float64 `json:"discount"`
}

// Order is the authoritative record of a placed order.
// OrderID and FinalAmount never change once the row is written.
type Order struct {
	ID                    uint                `json:"-" gorm:"primaryKey"`
	OrderID               string              `json:"orderId" gorm:"uniqueIndex;type:varchar(64);not null"`
	UserID                string              `json:"userId" gorm:"index;type:varchar(64)"`
	Items                 []ValidatedLineItem `json:"items" gorm:"serializer:json"`
	Customer              Customer            `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Address               Address             `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Subtotal              float64             `json:"subtotal"`
	Charges               ChargeBreakdown     `json:"charges" gorm:"embedded;embeddedPrefix:charge_"`
	FinalAmount           float64             `json:"finalAmount"`
	PaymentMethod         PaymentMethod       `json:"paymentMethod" gorm:"type:varchar(16)"`
	PaymentStatus         PaymentStatus       `json:"paymentStatus" gorm:"type:varchar(16);index"`
	PaymentMode           string              `json:"paymentMode"`
	PaymentMethodDetail   string              `json:"paymentMethodDetail"`
	OrderStatus           OrderStatus         `json:"orderStatus" gorm:"type:varchar(32)"`
	DeliveryStatus        string              `json:"deliveryStatus"`
	DeliveryMethod        string              `json:"deliveryMethod"`
	SelectedDeliverySlot  DeliverySlot        `json:"selectedDeliverySlot" gorm:"embedded;embeddedPrefix:slot_"`
	ReturnStatus          string              `json:"returnStatus"`
	OrderDate             time.Time           `json:"orderDate"`
	ExpectedDeliveryDate  time.Time           `json:"expectedDeliveryDate"`
	Gateway               string              `json:"gateway,omitempty"`
	PaymentGatewayOrderID *string             `json:"paymentGatewayOrderId" gorm:"index;type:varchar(128)"`
	PaymentSessionID      string              `json:"-"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

// OrderPatch is the set of mutable fields a status transition may touch.
// Nil fields are left untouched.
type OrderPatch struct {
	PaymentStatus       *PaymentStatus
	OrderStatus         *OrderStatus
	DeliveryStatus      *string
	PaymentMode         *string
	PaymentMethodDetail *string
}

// Apply copies the non-nil patch fields onto o.
func (p OrderPatch) Apply(o *Order) {
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.OrderStatus != nil {
		o.OrderStatus = *p.OrderStatus
	}
	if p.DeliveryStatus != nil {
		o.DeliveryStatus = *p.DeliveryStatus
	}
	if p.PaymentMode != nil {
		o.PaymentMode = *p.PaymentMode
	}
	if p.PaymentMethodDetail != nil {
		o.PaymentMethodDetail = *p.PaymentMethodDetail
	}
}

// Columns returns the patch as a GORM update map keyed by column name.
func (p OrderPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.PaymentStatus != nil {
		cols["payment_status"] = *p.PaymentStatus
	}
	if p.OrderStatus != nil {
		cols["order_status"] = *p.OrderStatus
	}
	if p.DeliveryStatus != nil {
		cols["delivery_status"] = *p.DeliveryStatus
	}
	if p.PaymentMode != nil {
		cols["payment_mode"] = *p.PaymentMode
	}
	if p.PaymentMethodDetail != nil {
		cols["payment_method_detail"] = *p.PaymentMethodDetail
	}
	return cols
}
