// Package pricing turns base fares, passengers and extras into a price breakdown.
package pricing

import (
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
)

const (
	// TaxPercent applies to summed base fares only.
	TaxPercent = 15

	// MaxBagsPerPassenger bounds each baggage count, scaled by passenger count.
	MaxBagsPerPassenger = 10

	businessFallbackMultiplier = 2
	firstFallbackMultiplier    = 3
)

const (
	ItemCheckedBagOverage  = "checked_bag_overage"
	ItemExtraBags          = "extra_bags"
	ItemSpecialMeal        = "special_meal"
	ItemUnaccompaniedMinor = "unaccompanied_minor"
	ItemPetTransport       = "pet_transport"
)

type Calculator struct {
	fees     config.FeesConfig
	currency string
}

func NewCalculator(cfg config.BookingConfig) *Calculator {
	return &Calculator{fees: cfg.Fees, currency: cfg.Currency}
}

// ClassPrice returns the base fare for class, falling back to a multiple of the
// economy fare only when the class has no explicit price.
func ClassPrice(prices map[domain.SeatClass]int64, class domain.SeatClass) (int64, error) {
	if !class.Valid() {
		return 0, domain.Validation("unknown seat class %q", class)
	}
	if p, ok := prices[class]; ok {
		if p < 0 {
			return 0, domain.Validation("flight has a negative %s fare", class)
		}
		return p, nil
	}
	economy := prices[domain.SeatClassEconomy]
	if economy <= 0 {
		return 0, domain.Validation("flight has no %s fare", class)
	}
	switch class {
	case domain.SeatClassBusiness:
		return economy * businessFallbackMultiplier, nil
	case domain.SeatClassFirst:
		return economy * firstFallbackMultiplier, nil
	}
	return economy, nil
}

// Quote is pure: identical inputs always produce identical breakdowns.
func (c *Calculator) Quote(prices map[domain.SeatClass]int64, passengers []domain.Passenger, baggage domain.Baggage, services domain.SpecialServices) (domain.PriceBreakdown, error) {
	if len(passengers) == 0 {
		return domain.PriceBreakdown{}, domain.Validation("at least one passenger is required")
	}
	if baggage.CheckedBags < 0 || baggage.ExtraBags < 0 {
		return domain.PriceBreakdown{}, domain.Validation("baggage counts must not be negative")
	}
	if maxBags := MaxBagsPerPassenger * len(passengers); baggage.CheckedBags > maxBags || baggage.ExtraBags > maxBags {
		return domain.PriceBreakdown{}, domain.Validation("at most %d bags per passenger are allowed", MaxBagsPerPassenger)
	}

	var base int64
	for _, p := range passengers {
		fare, err := ClassPrice(prices, p.Class)
		if err != nil {
			return domain.PriceBreakdown{}, err
		}
		base += fare
	}

	extras := make([]domain.LineItem, 0)
	add := func(name string, amount int64) {
		if amount > 0 {
			extras = append(extras, domain.LineItem{Name: name, Amount: amount})
		}
	}
	if baggage.CheckedBags > 1 {
		add(ItemCheckedBagOverage, int64(baggage.CheckedBags-1)*c.fees.CheckedBag)
	}
	add(ItemExtraBags, int64(baggage.ExtraBags)*c.fees.ExtraBag)
	if services.SpecialMeal {
		add(ItemSpecialMeal, c.fees.SpecialMeal)
	}
	if services.UnaccompaniedMinor {
		add(ItemUnaccompaniedMinor, c.fees.UnaccompaniedMinor)
	}
	if services.PetTransport {
		add(ItemPetTransport, c.fees.PetTransport)
	}

	b := domain.PriceBreakdown{
		BaseFare:   base,
		Taxes:      Tax(base),
		BookingFee: c.fees.BookingFee,
		Extras:     extras,
		Currency:   c.currency,
	}
	b.Total = b.BaseFare + b.Taxes + b.BookingFee + b.ExtrasTotal()
	return b, nil
}

// Tax rounds half up, once, on the summed base fare.
func Tax(base int64) int64 {
	return (base*TaxPercent + 50) / 100
}
