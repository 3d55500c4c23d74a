// Package verification turns what a kiosk captured into a pass/fail signal.
// Biometric matching happens upstream; only its outcome is consumed here.
package verification

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrPINNotSet = errors.New("employee has no pin configured")

// Sample is the raw verification input for one punch.
type Sample struct {
	Method          string
	PIN             string
	BiometricPassed *bool
}

// Result reports whether verification was attempted and whether it passed.
type Result struct {
	Attempted bool
	Passed    bool
}

type PINStore interface {
	// GetPINHash returns ErrPINNotSet when the employee has no pin.
	GetPINHash(ctx context.Context, employeeID string) ([]byte, error)
}

type Verifier struct {
	pins PINStore
}

func NewVerifier(pins PINStore) *Verifier {
	return &Verifier{pins: pins}
}

// Verify checks pins against stored bcrypt hashes and passes biometric
// outcomes through unchanged. Other methods are reported as not attempted.
func (v *Verifier) Verify(ctx context.Context, employeeID string, sample Sample) (Result, error) {
	switch sample.Method {
	case "pin":
		return v.verifyPIN(ctx, employeeID, sample.PIN)
	case "biometric":
		if sample.BiometricPassed == nil {
			return Result{}, nil
		}
		return Result{Attempted: true, Passed: *sample.BiometricPassed}, nil
	default:
		return Result{}, nil
	}
}

func (v *Verifier) verifyPIN(ctx context.Context, employeeID, pin string) (Result, error) {
	if v.pins == nil || pin == "" {
		return Result{}, nil
	}

	hash, err := v.pins.GetPINHash(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrPINNotSet) {
			return Result{Attempted: true, Passed: false}, nil
		}
		return Result{}, fmt.Errorf("failed to load pin hash: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Result{Attempted: true, Passed: false}, nil
		}
		return Result{}, fmt.Errorf("failed to compare pin: %w", err)
	}
	return Result{Attempted: true, Passed: true}, nil
}

// HashPIN produces the hash stored by PINStore implementations.
func HashPIN(pin string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}
	return hash, nil
}
