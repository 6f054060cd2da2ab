package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"guest_booking/internal/domain"
)

/********** alias registries (single source of truth) **********/

var roomAliases = map[string][]string{
	"id":           {"_id", "id", "roomId", "room_id"},
	"hotel":        {"hotel", "hotelId", "hotel_id"},
	"type":         {"type", "roomType", "room_type", "name"},
	"bed_type":     {"bedType", "bed_type", "bed"},
	"room_size":    {"roomSize", "room_size", "size"},
	"image":        {"image", "imageUrl", "photo", "thumbnail"},
	"availability": {"availability", "status", "availabilityStatus"},
}

var roomNumAliases = map[string][]string{
	"price_per_night": {"pricePerNight", "price_per_night", "price", "nightlyRate"},
	"per_adult":       {"perAdultPrice", "per_adult_price", "adultPrice"},
	"per_child":       {"perChildPrice", "per_child_price", "childPrice"},
	"discount":        {"discount", "discountAmount", "discount_amount"},
	"max_guests":      {"maxGuests", "max_guests", "capacity", "occupancy.max"},
	"total_rooms":     {"totalRooms", "total_rooms", "count"},
	"available":       {"availableCount", "available_count", "available", "remaining"},
}

var hotelAliases = map[string][]string{
	"id":          {"_id", "id", "hotelId", "hotel_id"},
	"name":        {"name", "hotelName", "hotel_name", "title"},
	"address":     {"address", "full_address", "location.address", "address.line"},
	"contact":     {"contact", "phone", "phoneNumber", "contact.phone"},
	"description": {"description", "about", "summary"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		switch s := v.(type) {
		case string:
			return s
		case float64:
			// ids sometimes arrive numeric
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func intAlias(m map[string]any, key string) int {
	if f := getFloatFlexible(m, roomNumAliases[key]...); f != nil {
		return int(*f)
	}
	return 0
}

func int64Alias(m map[string]any, key string) int64 {
	if f := getFloatFlexible(m, roomNumAliases[key]...); f != nil {
		return int64(*f)
	}
	return 0
}

/********** room mapper **********/

// mapRoom normalizes one backend room payload. Field names vary across
// backend versions; aliases cover the observed spellings.
func mapRoom(p map[string]any) domain.Room {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("context", "mapRoom").Msg("failed to marshal room to JSON")
	}

	return domain.Room{
		ID:                firstNonEmptyAlias(p, roomAliases, "id"),
		HotelID:           firstNonEmptyAlias(p, roomAliases, "hotel"),
		Type:              firstNonEmptyAlias(p, roomAliases, "type"),
		BedType:           firstNonEmptyAlias(p, roomAliases, "bed_type"),
		RoomSize:          firstNonEmptyAlias(p, roomAliases, "room_size"),
		Image:             firstNonEmptyAlias(p, roomAliases, "image"),
		Availability:      firstNonEmptyAlias(p, roomAliases, "availability"),
		PricePerNight:     int64Alias(p, "price_per_night"),
		PerAdultPrice:     int64Alias(p, "per_adult"),
		PerChildPrice:     int64Alias(p, "per_child"),
		DiscountAmount:    int64Alias(p, "discount"),
		TaxPercent:        getFloatFlexible(p, "taxPercentage", "tax_percentage", "tax"),
		CommissionPercent: getFloatFlexible(p, "commission", "commissionPercentage", "commission_percentage"),
		MaxGuests:         intAlias(p, "max_guests"),
		TotalRooms:        intAlias(p, "total_rooms"),
		AvailableCount:    intAlias(p, "available"),
		RawJSON:           raw,
	}
}

func mapRooms(in []map[string]any) []domain.Room {
	out := make([]domain.Room, 0, len(in))
	for _, p := range in {
		out = append(out, mapRoom(p))
	}
	return out
}

/********** hotel profile mapper **********/

func mapHotel(p map[string]any) domain.HotelProfile {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("context", "mapHotel").Msg("failed to marshal hotel to JSON")
	}

	stars := 0
	if f := getFloatFlexible(p, "stars", "starRating", "rating.stars", "rating"); f != nil {
		stars = int(*f)
	}

	return domain.HotelProfile{
		ID:          firstNonEmptyAlias(p, hotelAliases, "id"),
		Name:        firstNonEmptyAlias(p, hotelAliases, "name"),
		Stars:       stars,
		Address:     ptrStr(firstNonEmptyAlias(p, hotelAliases, "address")),
		Contact:     ptrStr(firstNonEmptyAlias(p, hotelAliases, "contact")),
		Description: ptrStr(firstNonEmptyAlias(p, hotelAliases, "description")),
		RawJSON:     raw,
	}
}
