// Package mapping converts between the client's camelCase field names and
// the persisted snake_case names through a fixed allow-list. Unknown fields
// are rejected rather than passed through, so a typo'd or unexpected field
// fails the request instead of silently disappearing.
package mapping

import (
	"fmt"
)

// caseFieldAllowList maps client camelCase names to persisted snake_case
// names for case update payloads. This list is the complete set of fields a
// client may write; everything else on a case is owned by the server.
var caseFieldAllowList = map[string]string{
	"roadAddress":    "road_address",
	"lotAddress":     "lot_address",
	"province":       "province",
	"district":       "district",
	"legalDongCd":    "legal_dong_cd",
	"buildingCd":     "building_cd",
	"roadCd":         "road_cd",
	"detail":         "detail",
	"floorNo":        "floor_no",
	"areaSqm":        "area_sqm",
	"propertyType":   "property_type",
	"contractType":   "contract_type",
	"contractAmount": "contract_amount",
	"monthlyRent":    "monthly_rent",
}

// snakeToCamel is the inverse of the allow-list, built once at init.
var snakeToCamel = func() map[string]string {
	inverse := make(map[string]string, len(caseFieldAllowList))
	for camel, snake := range caseFieldAllowList {
		inverse[snake] = camel
	}
	return inverse
}()

// ToSnake converts a camelCase client payload to snake_case persisted names.
// Any field not in the allow-list is an error.
func ToSnake(fields map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for camel, value := range fields {
		snake, ok := caseFieldAllowList[camel]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", camel)
		}
		out[snake] = value
	}
	return out, nil
}

// ToCamel converts snake_case persisted names back to camelCase client
// names. Any field not in the allow-list is an error.
func ToCamel(fields map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for snake, value := range fields {
		camel, ok := snakeToCamel[snake]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", snake)
		}
		out[camel] = value
	}
	return out, nil
}

// Allowed reports whether the camelCase field name is writable by clients.
func Allowed(camel string) bool {
	_, ok := caseFieldAllowList[camel]
	return ok
}
