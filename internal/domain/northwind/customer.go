package northwind

import (
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

// Customer is keyed by a natural string key (e.g. "ALFKI") assigned by the
// client, never generated by storage.
type Customer struct {
	CustomerID  string   `gorm:"column:customer_id;primaryKey" json:"customerId"`
	CompanyName string   `gorm:"column:company_name" json:"companyName"`
	ContactName string   `gorm:"column:contact_name" json:"contactName"`
	City        string   `gorm:"column:city" json:"city"`
	Country     string   `gorm:"column:country" json:"country"`
	Orders      []*Order `gorm:"foreignKey:CustomerID;references:CustomerID;constraint:OnDelete:RESTRICT" json:"orders"`

	tracking.Tracking `gorm:"-:all"`
}

func (Customer) TableName() string { return "customers" }

func NewCustomer() *Customer {
	c := &Customer{}
	c.InitDefaults()
	return c
}

func (c *Customer) InitDefaults() {
	c.EnsureIdentifier()
	if c.Orders == nil {
		c.Orders = []*Order{}
	}
}

func (c *Customer) AfterFind(*gorm.DB) error {
	c.InitDefaults()
	return nil
}

func (c *Customer) EntityName() string { return "Customer" }
func (c *Customer) KeyString() string  { return c.CustomerID }
func (c *Customer) SaveRank() int      { return rankRoot }

func (c *Customer) Neighbors() []tracking.Trackable {
	out := make([]tracking.Trackable, 0, len(c.Orders))
	for _, o := range c.Orders {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (c *Customer) SyncForeignKeys() {
	if c.CustomerID == "" {
		return
	}
	for _, o := range c.Orders {
		if o != nil {
			id := c.CustomerID
			o.CustomerID = &id
		}
	}
}

func (c *Customer) PruneDeleted() {
	c.Orders = prune(c.Orders)
}
