package app

import "guest_booking/internal/domain"

// Classify partitions the inventory into availability tiers for the given
// criteria. Eligibility comes first: a room whose availability flag is not
// open, or whose capacity is below the requested guest total, lands in no
// tier at all. Eligible rooms then split on available unit count versus the
// requested room count. Inventory order is preserved within each tier.
func Classify(rooms []domain.Room, c domain.SearchCriteria) domain.Tiered {
	var out domain.Tiered
	guests := c.TotalGuests()
	for _, r := range rooms {
		if r.AvailableCount > out.MaxAvailable {
			out.MaxAvailable = r.AvailableCount
		}
		if r.Availability != domain.AvailabilityOpen || r.MaxGuests < guests {
			continue
		}
		switch {
		case r.AvailableCount >= c.Rooms:
			out.Available = append(out.Available, r)
		case r.AvailableCount > 0:
			out.Limited = append(out.Limited, r)
		default:
			out.SoldOut = append(out.SoldOut, r)
		}
	}
	return out
}

// Insufficient reports whether the request asks for more rooms than any
// single room type can supply. The rooms view surfaces a distinct message in
// that case instead of the generic empty state.
func Insufficient(t domain.Tiered, c domain.SearchCriteria) bool {
	return c.Rooms > t.MaxAvailable
}
