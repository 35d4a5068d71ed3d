package domain

// TagCategory is one of the fixed domain concept classes a chunk can be
// tagged with. The set is closed; extending the vocabulary within a
// category is a dictionary change, not a code change.
type TagCategory string

// The fixed tag categories.
const (
	TagEquipment    TagCategory = "equipment"
	TagHazard       TagCategory = "hazard"
	TagProcedure    TagCategory = "procedure"
	TagRegulation   TagCategory = "regulation"
	TagMiningMethod TagCategory = "mining_method"
	TagMineral      TagCategory = "mineral"
)

// TagCategories lists every category in a stable order.
func TagCategories() []TagCategory {
	return []TagCategory{
		TagEquipment,
		TagHazard,
		TagProcedure,
		TagRegulation,
		TagMiningMethod,
		TagMineral,
	}
}

// Tags maps every category to the set of matched keywords.
// Every category is always present; an empty slice means
// "checked, none found", which callers must be able to distinguish
// from "not checked".
type Tags map[TagCategory][]string

// Has reports whether the keyword was matched under the category.
func (t Tags) Has(category TagCategory, keyword string) bool {
	for _, k := range t[category] {
		if k == keyword {
			return true
		}
	}
	return false
}
