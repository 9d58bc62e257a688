package enums

import "fmt"

// ListingCategory maps to the listing_category enum in Postgres.
type ListingCategory string

const (
	ListingCategoryVegetables ListingCategory = "vegetables"
	ListingCategoryFruits     ListingCategory = "fruits"
	ListingCategoryGrains     ListingCategory = "grains"
	ListingCategoryTubers     ListingCategory = "tubers"
	ListingCategoryDairy      ListingCategory = "dairy"
	ListingCategoryPoultry    ListingCategory = "poultry"
	ListingCategoryLivestock  ListingCategory = "livestock"
)

var validListingCategories = []ListingCategory{
	ListingCategoryVegetables,
	ListingCategoryFruits,
	ListingCategoryGrains,
	ListingCategoryTubers,
	ListingCategoryDairy,
	ListingCategoryPoultry,
	ListingCategoryLivestock,
}

// IsValid reports whether the value is a known ListingCategory.
func (c ListingCategory) IsValid() bool {
	for _, candidate := range validListingCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseListingCategory converts raw input into a ListingCategory.
func ParseListingCategory(value string) (ListingCategory, error) {
	for _, candidate := range validListingCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing category %q", value)
}

// ListingUnit maps to the listing_unit enum in Postgres.
type ListingUnit string

const (
	ListingUnitKilogram ListingUnit = "kg"
	ListingUnitLitre    ListingUnit = "litre"
	ListingUnitCrate    ListingUnit = "crate"
	ListingUnitSack     ListingUnit = "sack"
	ListingUnitBunch    ListingUnit = "bunch"
	ListingUnitPiece    ListingUnit = "piece"
)

var validListingUnits = []ListingUnit{
	ListingUnitKilogram,
	ListingUnitLitre,
	ListingUnitCrate,
	ListingUnitSack,
	ListingUnitBunch,
	ListingUnitPiece,
}

// IsValid reports whether the value is a known ListingUnit.
func (u ListingUnit) IsValid() bool {
	for _, candidate := range validListingUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseListingUnit converts raw input into a ListingUnit.
func ParseListingUnit(value string) (ListingUnit, error) {
	for _, candidate := range validListingUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing unit %q", value)
}
