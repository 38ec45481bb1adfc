package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLossValue(t *testing.T) {
	tests := []struct {
		name   string
		animal Animal
		want   string
	}{
		{
			name: "projected sales price wins when set",
			animal: Animal{
				ProjectedSalesPrice: decimal.NewFromInt(80000),
				PurchaseCost:        decimal.NewFromInt(50000),
				TotalFeedCost:       decimal.NewFromInt(5000),
			},
			want: "80000",
		},
		{
			name: "sums invested costs otherwise",
			animal: Animal{
				PurchaseCost:        decimal.NewFromInt(50000),
				TotalFeedCost:       decimal.NewFromInt(5000),
				TotalMedicationCost: decimal.NewFromInt(2000),
			},
			want: "57000",
		},
		{
			name:   "zero animal loses nothing",
			animal: Animal{},
			want:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			assert.NoError(t, err)
			assert.True(t, tt.animal.LossValue().Equal(want))
		})
	}
}
