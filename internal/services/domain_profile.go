package services

import "github.com/horizonml/horizon-go/internal/models"

// domainProfile bundles the per-domain behavior of the pipeline: how raw
// records aggregate, which feature columns exist, and how the metric is
// labeled in insights. Selected once per request, replacing scattered
// domain-string comparisons.
type domainProfile struct {
	domain models.Domain

	// valueName prefixes the lag/rolling feature columns,
	// e.g. "quantity_lag_1".
	valueName string

	// withDayOfMonth adds the day_of_month calendar feature. Expense and
	// order totals follow monthly billing cycles.
	withDayOfMonth bool

	// withRollingStd adds a 7-day rolling standard deviation column.
	withRollingStd bool
}

var domainProfiles = map[models.Domain]domainProfile{
	models.DomainInventory: {
		domain:         models.DomainInventory,
		valueName:      "quantity",
		withRollingStd: true,
	},
	models.DomainBudget: {
		domain:         models.DomainBudget,
		valueName:      "amount",
		withDayOfMonth: true,
	},
	models.DomainResource: {
		domain:    models.DomainResource,
		valueName: "utilization_rate",
	},
	models.DomainSales: {
		domain:         models.DomainSales,
		valueName:      "total_amount",
		withDayOfMonth: true,
	},
}

// featureNames returns the fixed, ordered feature column set for the domain.
// The order is the column order of the training matrix.
func (p domainProfile) featureNames() []string {
	names := []string{"day_of_year", "month", "week_of_year", "quarter", "day_of_week"}
	if p.withDayOfMonth {
		names = append(names, "day_of_month")
	}
	names = append(names,
		p.valueName+"_lag_1",
		p.valueName+"_lag_7",
		p.valueName+"_ma_7",
		p.valueName+"_ma_30",
	)
	if p.withRollingStd {
		names = append(names, p.valueName+"_std_7")
	}
	return names
}

func profileFor(domain models.Domain) (domainProfile, error) {
	profile, ok := domainProfiles[domain]
	if !ok {
		return domainProfile{}, models.ErrUnknownDomain
	}
	return profile, nil
}
