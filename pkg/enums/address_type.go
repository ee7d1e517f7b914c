package enums

import "slices"

type AddressType string

const (
	AddressTypeHome   AddressType = "Home"
	AddressTypeOffice AddressType = "Office"
	AddressTypeHotel  AddressType = "Hotel"
	AddressTypeOther  AddressType = "Other"
)

var validAddressTypes = []AddressType{
	AddressTypeHome,
	AddressTypeOffice,
	AddressTypeHotel,
	AddressTypeOther,
}

func (a AddressType) String() string {
	return string(a)
}

func (a AddressType) IsValid() bool {
	return slices.Contains(validAddressTypes, a)
}

func ParseAddressType(value string) (AddressType, error) {
	return parse("address type", value, validAddressTypes)
}
