package northwind

import (
	"strconv"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

type Category struct {
	CategoryID   int        `gorm:"column:category_id;primaryKey;autoIncrement" json:"categoryId"`
	CategoryName string     `gorm:"column:category_name" json:"categoryName"`
	Products     []*Product `gorm:"foreignKey:CategoryID;references:CategoryID;constraint:OnDelete:RESTRICT" json:"products"`

	tracking.Tracking `gorm:"-:all"`
}

func (Category) TableName() string { return "categories" }

func NewCategory() *Category {
	c := &Category{}
	c.InitDefaults()
	return c
}

func (c *Category) InitDefaults() {
	c.EnsureIdentifier()
	if c.Products == nil {
		c.Products = []*Product{}
	}
}

func (c *Category) AfterFind(*gorm.DB) error {
	c.InitDefaults()
	return nil
}

func (c *Category) EntityName() string { return "Category" }

func (c *Category) KeyString() string {
	if c.CategoryID == 0 {
		return ""
	}
	return strconv.Itoa(c.CategoryID)
}

func (c *Category) SaveRank() int { return rankRoot }

func (c *Category) Neighbors() []tracking.Trackable {
	out := make([]tracking.Trackable, 0, len(c.Products))
	for _, p := range c.Products {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (c *Category) SyncForeignKeys() {
	if c.CategoryID == 0 {
		return
	}
	for _, p := range c.Products {
		if p != nil {
			id := c.CategoryID
			p.CategoryID = &id
		}
	}
}

func (c *Category) PruneDeleted() {
	c.Products = prune(c.Products)
}
