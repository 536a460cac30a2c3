package session

import (
	"fmt"
	"unicode"
)

// ValidateSecretStrength checks if a new credential meets the local
// complexity requirements before any network call is made:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidateSecretStrength(secret string) error {
	if len(secret) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range secret {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
