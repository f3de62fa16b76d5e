package main

import "github.com/opinia/opinia/pkg/billing"

// defaultPlans is the launch catalog. Price ids must match the prices
// configured at the payment provider.
func defaultPlans() []billing.Plan {
	return []billing.Plan{
		{
			ID:          "price_basic_monthly",
			Name:        "Basic",
			Description: "For a single location getting started with customer feedback.",
			Tier:        billing.TierBasic,
			Interval:    billing.IntervalMonthly,
			UnitAmount:  billing.Money{Amount: 2900, Currency: "USD"},
			Limit:       billing.Limit{MaxLocations: 1, MaxUsers: 3, MaxFeedbacks: 500},
		},
		{
			ID:          "price_basic_annual",
			Name:        "Basic (annual)",
			Description: "Basic billed yearly, two months free.",
			Tier:        billing.TierBasic,
			Interval:    billing.IntervalAnnual,
			UnitAmount:  billing.Money{Amount: 29000, Currency: "USD"},
			Limit:       billing.Limit{MaxLocations: 1, MaxUsers: 3, MaxFeedbacks: 500},
		},
		{
			ID:          "price_pro_monthly",
			Name:        "Professional",
			Description: "For growing teams with multiple locations.",
			Tier:        billing.TierProfessional,
			Interval:    billing.IntervalMonthly,
			UnitAmount:  billing.Money{Amount: 9900, Currency: "USD"},
			Limit:       billing.Limit{MaxLocations: 10, MaxUsers: 25, MaxFeedbacks: 10000},
		},
		{
			ID:          "price_pro_annual",
			Name:        "Professional (annual)",
			Description: "Professional billed yearly, two months free.",
			Tier:        billing.TierProfessional,
			Interval:    billing.IntervalAnnual,
			UnitAmount:  billing.Money{Amount: 99000, Currency: "USD"},
			Limit:       billing.Limit{MaxLocations: 10, MaxUsers: 25, MaxFeedbacks: 10000},
		},
		{
			ID:          "price_ent_monthly",
			Name:        "Enterprise",
			Description: "Unlimited usage with priority support.",
			Tier:        billing.TierEnterprise,
			Interval:    billing.IntervalMonthly,
			UnitAmount:  billing.Money{Amount: 29900, Currency: "USD"},
		},
		{
			ID:          "price_ent_annual",
			Name:        "Enterprise (annual)",
			Description: "Enterprise billed yearly, two months free.",
			Tier:        billing.TierEnterprise,
			Interval:    billing.IntervalAnnual,
			UnitAmount:  billing.Money{Amount: 299000, Currency: "USD"},
		},
	}
}
