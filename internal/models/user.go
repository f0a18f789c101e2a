package models

import "time"

// PlaceholderImageURL is used for mirrored items that have no image.
const PlaceholderImageURL = "https://placehold.co/100x100/E0E0E0/000000?text=No+Image"

// UserProfile is a user document in the secondary (users) database.
type UserProfile struct {
	ID           string            `json:"id" gorm:"primaryKey;type:varchar(64)"`
	MobileNumber string            `json:"mobileNumber" gorm:"uniqueIndex;type:varchar(20)"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Orders       []UserOrderRecord `json:"orders" gorm:"foreignKey:UserID"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// UserOrderItem is the mirrored form of a line item.
type UserOrderItem struct {
	ItemID        string  `json:"itemId" bson:"itemId"`
	ItemName      string  `json:"itemName" bson:"itemName"`
	ImageURL      string  `json:"imageUrl" bson:"imageUrl"`
	Quantity      float64 `json:"quantity" bson:"quantity"`
	Price         float64 `json:"price" bson:"price"`
	QuantityType  string  `json:"quantity_type" bson:"quantity_type"`
	QuantityLabel string  `json:"quantity_label" bson:"quantity_label"`
}

// UserDeliveryDetails groups the delivery dates and slot of a mirrored order.
type UserDeliveryDetails struct {
	OrderDate            time.Time    `json:"orderDate" bson:"orderDate"`
	ExpectedDeliveryDate *time.Time   `json:"expectedDeliveryDate,omitempty" bson:"expectedDeliveryDate,omitempty"`
	Timing               DeliverySlot `json:"timing" bson:"timing" gorm:"embedded;embeddedPrefix:timing_"`
}

// UserOrderAddress is the mirrored delivery address; Lat/Lon are dropped when unknown.
type UserOrderAddress struct {
	Name      string   `json:"name" bson:"name"`
	Apartment string   `json:"apartment" bson:"apartment"`
	Street    string   `json:"street" bson:"street"`
	Type      string   `json:"type" bson:"type"`
	Lat       *float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty" bson:"lon,omitempty"`
	Pincode   string   `json:"pincode" bson:"pincode"`
	Address   string   `json:"address" bson:"address"`
}

// UserOrderRecord is the denormalized copy of an Order appended to a user's profile.
type UserOrderRecord struct {
	ID              uint                `json:"-" bson:"-" gorm:"primaryKey"`
	UserID          string              `json:"-" bson:"-" gorm:"index;type:varchar(64)"`
	OrderID         string              `json:"orderId" bson:"orderId" gorm:"index;type:varchar(64)"`
	OrderStatus     string              `json:"orderStatus" bson:"orderStatus"`
	PaymentStatus   string              `json:"paymentStatus" bson:"paymentStatus"`
	PaymentMethod   string              `json:"paymentMethod" bson:"paymentMethod"`
	DeliveryStatus  string              `json:"deliveryStatus" bson:"deliveryStatus"`
	DeliveryMethod  string              `json:"deliveryMethod" bson:"deliveryMethod"`
	ReturnStatus    string              `json:"returnStatus" bson:"returnStatus"`
	Items           []UserOrderItem     `json:"items" bson:"items" gorm:"serializer:json"`
	TotalPrice      float64             `json:"totalPrice" bson:"totalPrice"`
	Charges         ChargeBreakdown     `json:"charges" bson:"charges" gorm:"embedded;embeddedPrefix:charge_"`
	FinalAmount     float64             `json:"finalAmount" bson:"finalAmount"`
	DeliveryDetails UserDeliveryDetails `json:"deliveryDetails" bson:"deliveryDetails" gorm:"embedded;embeddedPrefix:delivery_"`
	Address         UserOrderAddress    `json:"address" bson:"address" gorm:"embedded;embeddedPrefix:address_"`
	CreatedAt       time.Time           `json:"-" bson:"-"`
}
