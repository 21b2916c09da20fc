package models

import "time"

// Product represents a catalog entry
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Stock       int      `json:"stock"`
	Rating      float64  `json:"rating,omitempty"`
	Reviews     int      `json:"reviews,omitempty"`
	Tags        []string `json:"tags"`
	Colors      []string `json:"colors"`
	Shades      []string `json:"shades"`
}

// UserProfile holds account details; hashes never leave the server
type UserProfile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	IsAdmin      bool   `json:"isAdmin"`
}

// Address is a saved shipping address
type Address struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	Name      string `json:"name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

// CartItem is a product snapshot plus quantity
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// UserData is one record of users.json, keyed by email
type UserData struct {
	Profile   UserProfile `json:"profile"`
	Addresses []Address   `json:"addresses"`
	Orders    []Order     `json:"orders"`
	Wishlist  []Product   `json:"wishlist"`
	Cart      []CartItem  `json:"cart"`
}

// OrderStatus values
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is the product snapshot captured at purchase time
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// ShippingDetails is the delivery contact attached to an order
type ShippingDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Order represents a placed order embedded in its owner's record
type Order struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingDetails ShippingDetails `json:"shippingDetails"`
	Status          OrderStatus     `json:"status"`
	Subtotal        float64         `json:"subtotal,omitempty"`
	DiscountAmount  float64         `json:"discountAmount,omitempty"`
	CouponCode      string          `json:"couponCode,omitempty"`
	TaxAmount       float64         `json:"taxAmount,omitempty"`
	ShippingCost    float64         `json:"shippingCost,omitempty"`
}

// CustomerOrder pairs an order with the email that owns it
type CustomerOrder struct {
	Email string `json:"email"`
	Order Order  `json:"order"`
}

// BlogPost represents an article
type BlogPost struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	AuthorName  string    `json:"authorName"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsPublished bool      `json:"isPublished"`
}

// DiscountType of a coupon
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a redeemable code; usage is not counted
type Coupon struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	DiscountType DiscountType `json:"discountType"`
	Value        float64      `json:"value"`
	ExpiryDate   *time.Time   `json:"expiryDate,omitempty"`
	MinSpend     *float64     `json:"minSpend,omitempty"`
	UsageLimit   *int         `json:"usageLimit,omitempty"`
}

// GlobalDiscount applies to every order
type GlobalDiscount struct {
	Percentage float64 `json:"percentage"`
}

// TaxRate is a percentage
type TaxRate struct {
	Rate float64 `json:"rate"`
}

// ShippingSettings: flat rate, free at or above threshold
type ShippingSettings struct {
	Rate      float64 `json:"rate"`
	Threshold float64 `json:"threshold"`
}

// AdminCredentials is the single back-office login
type AdminCredentials struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	PinHash      string    `json:"pinHash"`
	ConfiguredAt time.Time `json:"configuredAt"`
}

// Configured reports whether setup has completed
func (c AdminCredentials) Configured() bool {
	return c.Email != "" && c.PasswordHash != "" && c.PinHash != ""
}

// Defaults for singleton records
const (
	DefaultDiscountPercentage = 0
	DefaultTaxRate            = 18
	DefaultShippingRate       = 50
	DefaultShippingThreshold  = 999
)
