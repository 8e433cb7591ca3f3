package risk

import (
	"strings"
)

// Auction recovery ratios by regional tier and property class. The ratio
// models what fraction of fair value a forced sale would realistically fetch,
// which directly bounds how much of a deposit is recoverable.
//
// Tiers: capital-region prime districts > capital-region secondary > other
// metro cities > everything else. Villa/detached-class property consistently
// clears auctions at a lower fraction than apartment-class property.
const (
	apartmentCapitalPrime     = 0.92
	apartmentCapitalSecondary = 0.85
	apartmentMetro            = 0.78
	apartmentDefault          = 0.70

	villaCapitalPrime     = 0.82
	villaCapitalSecondary = 0.75
	villaMetro            = 0.68
	villaDefault          = 0.60
)

// capitalPrimeDistricts are the Seoul districts that clear auctions at the
// highest fraction of appraised value.
var capitalPrimeDistricts = map[string]bool{
	"강남구": true,
	"서초구": true,
	"송파구": true,
	"용산구": true,
}

// metroProvinces are the non-capital metropolitan cities.
var metroProvinces = map[string]bool{
	"부산광역시": true,
	"대구광역시": true,
	"대전광역시": true,
	"광주광역시": true,
	"울산광역시": true,
}

// ResolveAuctionRate looks up the assumed forced-sale recovery ratio for the
// given property class and region. The lookup is total: unrecognized regions
// fall back to the conservative non-metro default, so the result is always in
// (0, 1].
func ResolveAuctionRate(class PropertyClass, province, district string) float64 {
	province = strings.TrimSpace(province)
	district = strings.TrimSpace(district)

	tier := regionTier(province, district)

	if class == ClassVilla {
		switch tier {
		case tierCapitalPrime:
			return villaCapitalPrime
		case tierCapitalSecondary:
			return villaCapitalSecondary
		case tierMetro:
			return villaMetro
		default:
			return villaDefault
		}
	}

	// Apartment-class is the default when the class is unrecognized; it is
	// the more common input and the table stays total either way.
	switch tier {
	case tierCapitalPrime:
		return apartmentCapitalPrime
	case tierCapitalSecondary:
		return apartmentCapitalSecondary
	case tierMetro:
		return apartmentMetro
	default:
		return apartmentDefault
	}
}

type region int

const (
	tierDefault region = iota
	tierMetro
	tierCapitalSecondary
	tierCapitalPrime
)

// regionTier classifies a (province, district) pair. Seoul splits into prime
// and secondary by district; Gyeonggi and Incheon are capital-secondary as a
// whole; the remaining metropolitan cities are one tier below.
func regionTier(province, district string) region {
	switch {
	case isSeoul(province):
		if capitalPrimeDistricts[district] {
			return tierCapitalPrime
		}
		return tierCapitalSecondary
	case province == "경기도" || province == "인천광역시":
		return tierCapitalSecondary
	case metroProvinces[province]:
		return tierMetro
	default:
		return tierDefault
	}
}

func isSeoul(province string) bool {
	return province == "서울특별시" || province == "서울시" || province == "서울"
}
