// Package geo provides the distance engine and the device location contract.
package geo

import (
	"math"
	"sort"

	"fieldtrack/internal/models"
)

// earthRadiusMeters is the mean earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Radius bounds in kilometers for the nearby-shop search.
const (
	MinRadiusKm     = 1.0
	MaxRadiusKm     = 50.0
	DefaultRadiusKm = 5.0
)

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b models.LatLng) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ClampRadius bounds km to the supported search range, falling back to the
// default for non-positive or NaN input.
func ClampRadius(km float64) float64 {
	if math.IsNaN(km) || km <= 0 {
		return DefaultRadiusKm
	}
	if km < MinRadiusKm {
		return MinRadiusKm
	}
	if km > MaxRadiusKm {
		return MaxRadiusKm
	}
	return km
}

// ShopDistance is a shop annotated with its distance from the current
// position. HasDistance is false when either side has no coordinates, in
// which case the UI renders "distance unknown" instead of dropping the shop.
type ShopDistance struct {
	models.Shop
	Meters       float64
	WithinRadius bool
	HasDistance  bool
}

// Nearby annotates and orders shops by distance from pos. Shops without a
// location get +Inf distance and sort last; ties keep input order. When pos
// is nil no shop is dropped or reordered and every entry is flagged
// distance-unknown. The input slice is never mutated.
func Nearby(pos *models.LatLng, shops []models.Shop, radiusKm float64) []ShopDistance {
	radiusKm = ClampRadius(radiusKm)
	out := make([]ShopDistance, 0, len(shops))

	if pos == nil {
		for _, shop := range shops {
			out = append(out, ShopDistance{Shop: shop, Meters: math.Inf(1)})
		}
		return out
	}

	for _, shop := range shops {
		sd := ShopDistance{Shop: shop, Meters: math.Inf(1)}
		if shop.Location != nil {
			sd.Meters = Haversine(*pos, *shop.Location)
			sd.HasDistance = true
			sd.WithinRadius = sd.Meters <= radiusKm*1000
		}
		out = append(out, sd)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Meters < out[j].Meters
	})
	return out
}

// NearbyWithin is the "All nearby" listing: Nearby restricted to the radius.
// Without a position the radius cannot be evaluated, so the full annotated
// list is returned (every entry distance-unknown) instead of dropping it.
func NearbyWithin(pos *models.LatLng, shops []models.Shop, radiusKm float64) []ShopDistance {
	list := Nearby(pos, shops, radiusKm)
	if pos == nil {
		return list
	}
	return FilterWithin(list)
}

// FilterWithin keeps only shops inside the radius. Used for the "All nearby"
// list; the planned-visit list shows everything Nearby returns.
func FilterWithin(list []ShopDistance) []ShopDistance {
	out := make([]ShopDistance, 0, len(list))
	for _, sd := range list {
		if sd.WithinRadius {
			out = append(out, sd)
		}
	}
	return out
}
