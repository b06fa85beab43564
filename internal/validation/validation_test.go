package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/jmolenaar/fundtracker/internal/model"
)

func TestParseDate(t *testing.T) {
	t.Run("parses YYYY-MM-DD as UTC midnight", func(t *testing.T) {
		parsed, err := ParseDate("2024-03-15")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		if !parsed.Equal(want) {
			t.Errorf("expected %v, got %v", want, parsed)
		}
	})

	t.Run("rejects other layouts", func(t *testing.T) {
		for _, input := range []string{"15-03-2024", "2024/03/15", "March 15 2024", ""} {
			if _, err := ParseDate(input); !errors.Is(err, ErrInvalidDate) {
				t.Errorf("expected ErrInvalidDate for %q, got %v", input, err)
			}
		}
	})
}

func TestParseOptionalDate(t *testing.T) {
	parsed, err := ParseOptionalDate("")
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if !parsed.IsZero() {
		t.Errorf("expected zero time, got %v", parsed)
	}
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"); err != nil {
		t.Errorf("expected valid UUID to pass, got %v", err)
	}
	if err := ValidateUUID("not-a-uuid"); !errors.Is(err, ErrInvalidUUID) {
		t.Errorf("expected ErrInvalidUUID, got %v", err)
	}
}

func TestRequire(t *testing.T) {
	if err := Require("name", "set"); err != nil {
		t.Errorf("expected non-empty value to pass, got %v", err)
	}
	if err := Require("name", ""); !errors.Is(err, ErrRequired) {
		t.Errorf("expected ErrRequired, got %v", err)
	}
}

func TestValidateTransactionType(t *testing.T) {
	for _, txType := range []string{
		model.TransactionBuy, model.TransactionSell, model.TransactionDividend, model.TransactionFee,
	} {
		if err := ValidateTransactionType(txType); err != nil {
			t.Errorf("expected %q to be valid, got %v", txType, err)
		}
	}
	if err := ValidateTransactionType("transfer"); err == nil {
		t.Error("expected an error for an unknown type")
	}
}

func TestValidateTransactionAmounts(t *testing.T) {
	t.Run("buy needs positive shares", func(t *testing.T) {
		if err := ValidateTransactionAmounts(model.TransactionBuy, 10, 5); err != nil {
			t.Errorf("expected valid buy, got %v", err)
		}
		if err := ValidateTransactionAmounts(model.TransactionBuy, 0, 5); err == nil {
			t.Error("expected an error for zero shares")
		}
		if err := ValidateTransactionAmounts(model.TransactionBuy, 10, -1); err == nil {
			t.Error("expected an error for negative cost")
		}
	})

	t.Run("fee carries its amount in cost with zero shares", func(t *testing.T) {
		if err := ValidateTransactionAmounts(model.TransactionFee, 0, 7.5); err != nil {
			t.Errorf("expected valid fee, got %v", err)
		}
		if err := ValidateTransactionAmounts(model.TransactionFee, 1, 7.5); err == nil {
			t.Error("expected an error for a fee with shares")
		}
		if err := ValidateTransactionAmounts(model.TransactionFee, 0, 0); err == nil {
			t.Error("expected an error for a zero fee amount")
		}
	})
}

func TestValidateISIN(t *testing.T) {
	if err := ValidateISIN("IE00B3RBWM25"); err != nil {
		t.Errorf("expected valid ISIN, got %v", err)
	}
	for _, isin := range []string{"", "IE00B3RBWM2", "1200B3RBWM25", "IE00B3RBWM2%"} {
		if err := ValidateISIN(isin); err == nil {
			t.Errorf("expected an error for %q", isin)
		}
	}
}

func TestValidateDividendType(t *testing.T) {
	for _, dt := range []string{"accumulating", "distributing", "none"} {
		if err := ValidateDividendType(dt); err != nil {
			t.Errorf("expected %q to be valid, got %v", dt, err)
		}
	}
	if err := ValidateDividendType("quarterly"); err == nil {
		t.Error("expected an error for an unknown dividend type")
	}
}
