package rop

import "github.com/andresuchdata/rop-engine/internal/domain"

// SelectSupplier picks the preferred supplier among active qualifying options:
// the first one with a known lead time, else the first active one, else nil.
func SelectSupplier(options []domain.SupplierOption) *domain.SupplierOption {
	var firstActive *domain.SupplierOption
	for i := range options {
		option := &options[i]
		if !option.IsSupplier || !option.Active {
			continue
		}
		if hasLeadTime(option) {
			return option
		}
		if firstActive == nil {
			firstActive = option
		}
	}
	return firstActive
}

// ResolveLeadTime returns the lead time of the first qualifying supplier
// option that has one. ok is false when no option carries a lead time.
func ResolveLeadTime(options []domain.SupplierOption) (days int, ok bool) {
	for i := range options {
		if options[i].IsSupplier && hasLeadTime(&options[i]) {
			return *options[i].LeadTimeDays, true
		}
	}
	return 0, false
}

func hasLeadTime(o *domain.SupplierOption) bool {
	return o.LeadTimeDays != nil && *o.LeadTimeDays > 0
}
