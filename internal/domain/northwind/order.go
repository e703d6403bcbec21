package northwind

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

type Order struct {
	OrderID      int                 `gorm:"column:order_id;primaryKey;autoIncrement" json:"orderId"`
	CustomerID   *string             `gorm:"column:customer_id;index" json:"customerId"`
	OrderDate    *time.Time          `gorm:"column:order_date" json:"orderDate"`
	ShippedDate  *time.Time          `gorm:"column:shipped_date" json:"shippedDate"`
	ShipVia      *int                `gorm:"column:ship_via" json:"shipVia"`
	Freight      decimal.NullDecimal `gorm:"column:freight;type:decimal(18,2)" json:"freight"`
	Customer     *Customer           `gorm:"constraint:OnDelete:RESTRICT" json:"customer"`
	OrderDetails []*OrderDetail      `gorm:"foreignKey:OrderID;references:OrderID;constraint:OnDelete:CASCADE" json:"orderDetails"`

	tracking.Tracking `gorm:"-:all"`
}

func (Order) TableName() string { return "orders" }

func NewOrder() *Order {
	o := &Order{}
	o.InitDefaults()
	return o
}

func (o *Order) InitDefaults() {
	o.EnsureIdentifier()
	if o.OrderDetails == nil {
		o.OrderDetails = []*OrderDetail{}
	}
}

func (o *Order) AfterFind(*gorm.DB) error {
	o.InitDefaults()
	return nil
}

func (o *Order) EntityName() string { return "Order" }

func (o *Order) KeyString() string {
	if o.OrderID == 0 {
		return ""
	}
	return strconv.Itoa(o.OrderID)
}

func (o *Order) SaveRank() int { return rankDependent }

func (o *Order) Neighbors() []tracking.Trackable {
	out := make([]tracking.Trackable, 0, len(o.OrderDetails)+1)
	if o.Customer != nil {
		out = append(out, o.Customer)
	}
	for _, d := range o.OrderDetails {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (o *Order) SyncForeignKeys() {
	if o.Customer != nil && o.Customer.CustomerID != "" {
		id := o.Customer.CustomerID
		o.CustomerID = &id
	}
	if o.OrderID == 0 {
		return
	}
	for _, d := range o.OrderDetails {
		if d != nil {
			d.OrderID = o.OrderID
		}
	}
}

func (o *Order) PruneDeleted() {
	o.OrderDetails = prune(o.OrderDetails)
}
