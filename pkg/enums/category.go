package enums

import "slices"

// Category tags a product and the ads posted against it.
type Category string

const (
	CategoryFurniture      Category = "Furniture"
	CategoryClothing       Category = "Clothing"
	CategoryPrintsGraphics Category = "Prints & Graphics"
	CategoryHomeDecor      Category = "Home Decor"
	CategoryJewellery      Category = "Jewellery"
	CategoryEventSetups    Category = "Event Setups"
	CategoryAccessories    Category = "Accessories"
	CategoryOthers         Category = "Others"
)

var validCategories = []Category{
	CategoryFurniture,
	CategoryClothing,
	CategoryPrintsGraphics,
	CategoryHomeDecor,
	CategoryJewellery,
	CategoryEventSetups,
	CategoryAccessories,
	CategoryOthers,
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the category is recognized.
func (c Category) IsValid() bool {
	return slices.Contains(validCategories, c)
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(value string) (Category, error) {
	return parse("category", value, validCategories)
}
