package enums

import "fmt"

// ShopRole classifies a vendor shop by the trade it serves.
type ShopRole string

const (
	ShopRoleB2B      ShopRole = "b2b"
	ShopRoleB2C      ShopRole = "b2c"
	ShopRoleCombined ShopRole = "combined"
)

var validShopRoles = []ShopRole{
	ShopRoleB2B,
	ShopRoleB2C,
	ShopRoleCombined,
}

// String implements fmt.Stringer.
func (r ShopRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ShopRole.
func (r ShopRole) IsValid() bool {
	for _, candidate := range validShopRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ServesRetail reports whether the role handles retail (B2C) trade.
// Combined shops behave as retail for pool selection.
func (r ShopRole) ServesRetail() bool {
	return r == ShopRoleB2C || r == ShopRoleCombined
}

// ServesIndustrial reports whether the role handles industrial (B2B) trade.
func (r ShopRole) ServesIndustrial() bool {
	return r == ShopRoleB2B || r == ShopRoleCombined
}

// ParseShopRole converts raw input into a ShopRole.
func ParseShopRole(value string) (ShopRole, error) {
	for _, candidate := range validShopRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shop role %q", value)
}
