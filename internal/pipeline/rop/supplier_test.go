package rop

import (
	"testing"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func option(id int64, lead *int, active, supplier bool) domain.SupplierOption {
	return domain.SupplierOption{
		SupplierID:   id,
		SupplierName: "supplier",
		LeadTimeDays: lead,
		Active:       active,
		IsSupplier:   supplier,
	}
}

func TestSelectSupplier(t *testing.T) {
	options := []domain.SupplierOption{
		option(1, intPtr(5), false, true),
		option(2, nil, true, true),
		option(3, intPtr(9), true, false),
		option(4, intPtr(12), true, true),
	}

	got := SelectSupplier(options)
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.SupplierID)
}

func TestSelectSupplier_FallsBackToFirstActive(t *testing.T) {
	options := []domain.SupplierOption{
		option(1, intPtr(0), true, true),
		option(2, nil, true, true),
	}

	got := SelectSupplier(options)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.SupplierID)
}

func TestSelectSupplier_None(t *testing.T) {
	assert.Nil(t, SelectSupplier(nil))
	assert.Nil(t, SelectSupplier([]domain.SupplierOption{option(1, intPtr(3), false, true)}))
}

func TestResolveLeadTime(t *testing.T) {
	days, ok := ResolveLeadTime([]domain.SupplierOption{
		option(1, nil, true, true),
		option(2, intPtr(21), false, true),
		option(3, intPtr(7), true, true),
	})
	assert.True(t, ok)
	assert.Equal(t, 21, days)

	_, ok = ResolveLeadTime([]domain.SupplierOption{option(1, intPtr(3), true, false)})
	assert.False(t, ok)
}
