package northwind

import (
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

type OrderDetail struct {
	OrderDetailID int             `gorm:"column:order_detail_id;primaryKey;autoIncrement" json:"orderDetailId"`
	OrderID       int             `gorm:"column:order_id;not null;index" json:"orderId"`
	ProductID     int             `gorm:"column:product_id;not null;index" json:"productId"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unitPrice"`
	Quantity      int16           `gorm:"column:quantity;not null" json:"quantity"`
	Discount      float32         `gorm:"column:discount;not null" json:"discount"`
	Order         *Order          `gorm:"constraint:OnDelete:CASCADE" json:"order"`
	Product       *Product        `gorm:"constraint:OnDelete:CASCADE" json:"product"`

	tracking.Tracking `gorm:"-:all"`
}

func (OrderDetail) TableName() string { return "order_details" }

func NewOrderDetail() *OrderDetail {
	d := &OrderDetail{}
	d.InitDefaults()
	return d
}

func (d *OrderDetail) InitDefaults() { d.EnsureIdentifier() }

func (d *OrderDetail) AfterFind(*gorm.DB) error {
	d.InitDefaults()
	return nil
}

func (d *OrderDetail) EntityName() string { return "OrderDetail" }

func (d *OrderDetail) KeyString() string {
	if d.OrderDetailID == 0 {
		return ""
	}
	return strconv.Itoa(d.OrderDetailID)
}

func (d *OrderDetail) SaveRank() int { return rankLeaf }

func (d *OrderDetail) Neighbors() []tracking.Trackable {
	out := make([]tracking.Trackable, 0, 2)
	if d.Order != nil {
		out = append(out, d.Order)
	}
	if d.Product != nil {
		out = append(out, d.Product)
	}
	return out
}

func (d *OrderDetail) SyncForeignKeys() {
	if d.Order != nil && d.Order.OrderID != 0 {
		d.OrderID = d.Order.OrderID
	}
	if d.Product != nil && d.Product.ProductID != 0 {
		d.ProductID = d.Product.ProductID
	}
}

func (d *OrderDetail) PruneDeleted() {}

// LineTotal is UnitPrice * Quantity * (1 - Discount), rounded to cents.
func (d *OrderDetail) LineTotal() decimal.Decimal {
	gross := d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
	discount := decimal.NewFromFloat32(d.Discount)
	return gross.Mul(decimal.NewFromInt(1).Sub(discount)).Round(2)
}
