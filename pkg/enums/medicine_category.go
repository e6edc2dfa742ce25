package enums

import "fmt"

// MedicineCategory is the stock-book register a medicine belongs to.
type MedicineCategory string

const (
	// CategoryTDSR is also the default applied when a purchase creates a
	// master inventory row without an explicit category.
	CategoryTDSR MedicineCategory = "TDSR"
	CategoryPDSR MedicineCategory = "PDSR"
)

var validMedicineCategories = []MedicineCategory{
	CategoryTDSR,
	CategoryPDSR,
}

// String implements fmt.Stringer.
func (c MedicineCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known MedicineCategory.
func (c MedicineCategory) IsValid() bool {
	for _, candidate := range validMedicineCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseMedicineCategory converts raw input into a MedicineCategory.
func ParseMedicineCategory(value string) (MedicineCategory, error) {
	for _, candidate := range validMedicineCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid medicine category %q", value)
}
