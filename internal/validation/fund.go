package validation

import "fmt"

// ValidateDividendType checks a fund's dividend handling mode.
func ValidateDividendType(dividendType string) error {
	switch dividendType {
	case "accumulating", "distributing", "none":
		return nil
	}
	return fmt.Errorf("unknown dividend type %q", dividendType)
}

// ValidateISIN performs a light structural check: two letters followed by ten
// alphanumerics.
func ValidateISIN(isin string) error {
	if len(isin) != 12 {
		return fmt.Errorf("isin must be 12 characters, got %d", len(isin))
	}
	for i, r := range isin {
		switch {
		case i < 2 && (r < 'A' || r > 'Z'):
			return fmt.Errorf("isin must start with a two-letter country code")
		case i >= 2 && !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')):
			return fmt.Errorf("isin contains invalid character %q", r)
		}
	}
	return nil
}
