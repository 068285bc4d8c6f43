package wallet

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPin = errors.New("invalid PIN")
	ErrPinFormat  = errors.New("PIN must be 4 digits")
)

func HashPin(pin string) (string, error) {
	if len(pin) != 4 {
		return "", ErrPinFormat
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return "", ErrPinFormat
		}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPin checks a transaction PIN against the main wallet.
func VerifyPin(w *Wallet, pin string) error {
	if w.PinHash == "" || pin == "" {
		return ErrInvalidPin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(w.PinHash), []byte(pin)); err != nil {
		return ErrInvalidPin
	}
	return nil
}
