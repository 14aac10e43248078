package model

// Catalog holds the controlled vocabularies records are validated against.
type Catalog struct {
	Countries         []string `json:"countries" yaml:"countries" mapstructure:"countries"`
	VirtualPoints     []string `json:"virtual_points" yaml:"virtual_points" mapstructure:"virtual_points"`
	StoragePoints     []string `json:"storage_points" yaml:"storage_points" mapstructure:"storage_points"`
	PredefinedTags    []string `json:"predefined_tags" yaml:"predefined_tags" mapstructure:"predefined_tags"`
	CapacityUnits     []string `json:"capacity_units" yaml:"capacity_units" mapstructure:"capacity_units"`
	VolumeUnits       []string `json:"volume_units" yaml:"volume_units" mapstructure:"volume_units"`
	AllowCustomPoints bool     `json:"allow_custom_points" yaml:"allow_custom_points" mapstructure:"allow_custom_points"`
}

// DefaultCatalog returns the vocabularies used by the CEE gas desk.
func DefaultCatalog() Catalog {
	return Catalog{
		Countries: []string{
			"Turkey", "Bulgaria", "Romania", "Greece", "Serbia", "Hungary",
			"Croatia", "Slovenia", "Austria", "Slovakia", "Ukraine", "Moldova",
		},
		VirtualPoints:  []string{"MGP", "AT-VTP"},
		StoragePoints:  []string{"MMBF", "HEXUM"},
		PredefinedTags: []string{"outage", "maintenance", "regulatory", "forecast"},
		CapacityUnits:  []string{"kWh/h", "MWh/h", "GWh/h", "m³/h"},
		VolumeUnits:    []string{"MW", "MWh", "GW", "GWh"},
	}
}

// PointNames returns the fixed point-name domain for a point type. The second
// return is false when the type accepts free-form names.
func (c Catalog) PointNames(pt PointType) ([]string, bool) {
	switch pt {
	case PointTypeVirtual:
		return c.VirtualPoints, true
	case PointTypeStorage:
		return c.StoragePoints, true
	case PointTypeCountry:
		return []string{EntireCountry}, true
	default:
		return nil, false
	}
}

// HasCountry reports whether country is in the catalog.
func (c Catalog) HasCountry(country string) bool {
	return contains(c.Countries, country)
}

// HasCapacityUnit reports whether unit is an accepted capacity unit.
func (c Catalog) HasCapacityUnit(unit string) bool {
	return contains(c.CapacityUnits, unit)
}

// HasVolumeUnit reports whether unit is an accepted volume unit.
func (c Catalog) HasVolumeUnit(unit string) bool {
	return contains(c.VolumeUnits, unit)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
