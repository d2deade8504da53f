package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// HashOTPCode hashes a one-time login code. Codes are stored hashed so a
// leaked otp_logins table exposes nothing usable.
func HashOTPCode(code string) (string, error) {
	return HashPassword(code)
}

// CheckOTPCode compares a stored code hash with a submitted code.
func CheckOTPCode(hashedCode, code string) bool {
	return CheckPassword(hashedCode, code)
}
