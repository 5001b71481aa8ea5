package cost

import "github.com/shopspring/decimal"

// Cost is the persisted row of the costs store. ID is assigned by the store.
type Cost struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Date        string          `gorm:"column:date;not null"`
	Item        string          `gorm:"column:item;not null"`
	Sum         decimal.Decimal `gorm:"column:sum;type:numeric;not null"`
	Category    string          `gorm:"column:category;not null"`
	Description string          `gorm:"column:description;not null"`
	Starred     bool            `gorm:"column:starred;not null"`
}

func (Cost) TableName() string {
	return "costs"
}
