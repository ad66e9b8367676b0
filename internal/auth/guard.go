package auth

import (
	"strings"

	"rentpilot/internal/models"
)

const (
	LoginPath     = "/login"
	LandlordHome  = "/dashboard"
	TenantHome    = "/tenant"
	signUpPath    = "/signup"
	resetPassPath = "/reset-password"
)

func isPublic(path string) bool {
	switch path {
	case LoginPath, signUpPath, resetPassPath:
		return true
	}
	return false
}

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Home returns the landing page of a role
func Home(role models.Role) string {
	switch role {
	case models.RoleLandlord:
		return LandlordHome
	case models.RoleTenant:
		return TenantHome
	}
	return LoginPath
}

// Destination decides where a visitor asking for path should end up. The
// boolean is false when path can be served as is.
func Destination(session *Session, path string) (string, bool) {
	if session == nil {
		if isPublic(path) {
			return "", false
		}
		return LoginPath, true
	}

	if isPublic(path) || path == "/" {
		return Home(session.Role), true
	}

	switch session.Role {
	case models.RoleLandlord:
		if under(path, TenantHome) {
			return LandlordHome, true
		}
	case models.RoleTenant:
		if under(path, LandlordHome) {
			return TenantHome, true
		}
	default:
		return LoginPath, true
	}
	return "", false
}
