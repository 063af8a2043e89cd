package enums

import "fmt"

// VendorType classifies the service a vendor offers.
type VendorType string

const (
	VendorTypeFood     VendorType = "food"
	VendorTypeLaundry  VendorType = "laundry"
	VendorTypeMilk     VendorType = "milk"
	VendorTypeCleaning VendorType = "cleaning"
)

var validVendorTypes = []VendorType{
	VendorTypeFood,
	VendorTypeLaundry,
	VendorTypeMilk,
	VendorTypeCleaning,
}

func (v VendorType) String() string {
	return string(v)
}

func (v VendorType) IsValid() bool {
	for _, candidate := range validVendorTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

func ParseVendorType(value string) (VendorType, error) {
	for _, candidate := range validVendorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor type %q", value)
}
