package models

// PricePerDistanceUnitOption is the option holding the price charged per kilometre.
const PricePerDistanceUnitOption = "pricePerDistanceUnit"

// ConfigurationOption is a flat name/value setting.
type ConfigurationOption struct {
	Name  string `db:"name" json:"name"`
	Value string `db:"value" json:"value"`
}
