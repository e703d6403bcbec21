package northwind

import (
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

type Product struct {
	ProductID    int                 `gorm:"column:product_id;primaryKey;autoIncrement" json:"productId"`
	ProductName  string              `gorm:"column:product_name" json:"productName"`
	CategoryID   *int                `gorm:"column:category_id;index" json:"categoryId"`
	UnitPrice    decimal.NullDecimal `gorm:"column:unit_price;type:decimal(18,2)" json:"unitPrice"`
	Discontinued bool                `gorm:"column:discontinued;not null;default:false" json:"discontinued"`
	RowVersion   []byte              `gorm:"column:row_version" json:"rowVersion"`
	Category     *Category           `gorm:"constraint:OnDelete:RESTRICT" json:"category"`

	tracking.Tracking `gorm:"-:all"`
}

func (Product) TableName() string { return "products" }

func NewProduct() *Product {
	p := &Product{}
	p.InitDefaults()
	return p
}

func (p *Product) InitDefaults() { p.EnsureIdentifier() }

// BeforeCreate stamps the first row version on products inserted without one.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if len(p.RowVersion) == 0 {
		p.RowVersion = InitialRowVersion()
	}
	return nil
}

func (p *Product) AfterFind(*gorm.DB) error {
	p.InitDefaults()
	return nil
}

func (p *Product) EntityName() string { return "Product" }

func (p *Product) KeyString() string {
	if p.ProductID == 0 {
		return ""
	}
	return strconv.Itoa(p.ProductID)
}

func (p *Product) SaveRank() int { return rankDependent }

func (p *Product) Neighbors() []tracking.Trackable {
	if p.Category == nil {
		return nil
	}
	return []tracking.Trackable{p.Category}
}

func (p *Product) SyncForeignKeys() {
	if p.Category != nil && p.Category.CategoryID != 0 {
		id := p.Category.CategoryID
		p.CategoryID = &id
	}
}

func (p *Product) PruneDeleted() {}

func (p *Product) CurrentRowVersion() []byte { return p.RowVersion }
func (p *Product) SetRowVersion(v []byte)    { p.RowVersion = v }
