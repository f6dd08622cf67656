package registry

import "github.com/theirongolddev/tripburn/internal/model"

// DefaultFlag is used for destinations without a flag of their own.
const DefaultFlag = "🌍"

// presets are the built-in destinations, in display order.
var presets = []model.DestinationConfig{
	{Slug: "thailand", Name: "Thailand", CurrencyCode: "THB", CurrencySymbol: "฿", ExchangeRate: 43.5, PlannedDurationDays: 60, Flag: "🇹🇭"},
	{Slug: "laos", Name: "Laos", CurrencyCode: "LAK", CurrencySymbol: "₭", ExchangeRate: 25000, PlannedDurationDays: 14, Flag: "🇱🇦"},
	{Slug: "vietnam", Name: "Vietnam", CurrencyCode: "VND", CurrencySymbol: "₫", ExchangeRate: 30000, PlannedDurationDays: 30, Flag: "🇻🇳"},
	{Slug: "cambodia", Name: "Cambodia", CurrencyCode: "KHR", CurrencySymbol: "៛", ExchangeRate: 5100, PlannedDurationDays: 14, Flag: "🇰🇭"},
	{Slug: "malaysia", Name: "Malaysia", CurrencyCode: "MYR", CurrencySymbol: "RM", ExchangeRate: 5.8, PlannedDurationDays: 14, Flag: "🇲🇾"},
	{Slug: "philippines", Name: "Philippines", CurrencyCode: "PHP", CurrencySymbol: "₱", ExchangeRate: 70, PlannedDurationDays: 45, Flag: "🇵🇭"},
	{Slug: "indonesia", Name: "Indonesia", CurrencyCode: "IDR", CurrencySymbol: "Rp", ExchangeRate: 19500, PlannedDurationDays: 45, Flag: "🇮🇩"},
}

// Preset returns the built-in config for slug.
func Preset(slug string) (model.DestinationConfig, bool) {
	for _, p := range presets {
		if p.Slug == slug {
			return p, true
		}
	}
	return model.DestinationConfig{}, false
}

// Presets returns a copy of the built-in destinations.
func Presets() []model.DestinationConfig {
	out := make([]model.DestinationConfig, len(presets))
	copy(out, presets)
	return out
}
