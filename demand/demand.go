// Package demand holds the product demand records and the calculation that
// turns a sales prediction and the current stock into a restocking demand.
package demand

import (
	"context"
)

// DefaultComplexity is the number of coefficient iterations per record.
const DefaultComplexity = 100_000_000

// checkEvery is how many iterations run between cancellation checks.
const checkEvery = 1 << 20

// ProductAnalytics is one input row: predicted sales and current stock.
type ProductAnalytics struct {
	ID         int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement:false" validate:"gte=0"`
	Prediction int64 `json:"prediction" gorm:"column:prediction" validate:"gte=0"`
	Stock      int64 `json:"stock" gorm:"column:stock" validate:"gte=0"`
}

// TableName sets the gorm table name.
func (ProductAnalytics) TableName() string { return "product_analytics" }

// ProductDemand is one output row: how many units to order.
type ProductDemand struct {
	ID     int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement:false"`
	Demand int64 `json:"demand" gorm:"column:demand"`
}

// TableName sets the gorm table name.
func (ProductDemand) TableName() string { return "product_demands" }

// Calculator computes ProductDemand from ProductAnalytics. Complexity sets
// how many iterations of the prediction coefficient are run per record, which
// makes the calculation deliberately CPU-bound.
type Calculator struct {
	Complexity int
}

// NewCalculator returns a Calculator. Zero complexity runs no iterations and
// keeps the coefficient at 1; a negative one selects DefaultComplexity.
func NewCalculator(complexity int) *Calculator {
	if complexity < 0 {
		complexity = DefaultComplexity
	}
	return &Calculator{Complexity: complexity}
}

// Calculate returns the demand for one product. Demand is the shortfall of
// stock against the prediction, or zero when stock covers it. It returns
// ctx.Err() if ctx is cancelled mid-calculation.
func (c *Calculator) Calculate(ctx context.Context, in ProductAnalytics) (ProductDemand, error) {
	coef := 1.0
	for i := 0; i < c.Complexity; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return ProductDemand{}, err
			}
		}
		coef /= 3
	}

	var demand int64
	if in.Prediction > in.Stock+int64(coef) {
		demand = in.Prediction - in.Stock
	}
	return ProductDemand{ID: in.ID, Demand: demand}, nil
}
