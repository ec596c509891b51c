package auth

import "liyu1981.xyz/smart-farm-service/pkg/models"

func NormalizeRole(value string) (models.Role, bool) {
	switch models.Role(value) {
	case models.RoleFarmer, models.RoleExpert:
		return models.Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast reports whether role satisfies required. Experts can do everything farmers can.
func RoleAtLeast(role models.Role, required models.Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role models.Role) int {
	switch role {
	case models.RoleFarmer:
		return 1
	case models.RoleExpert:
		return 2
	default:
		return 0
	}
}
