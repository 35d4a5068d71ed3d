package tagger

import "github.com/mira-labs/mira/internal/core/domain"

// DefaultDictionary returns the built-in mining vocabulary. Callers can
// pass their own Dictionary to New for per-domain or per-language
// variants; this one covers the Australian mining safety corpus.
func DefaultDictionary() Dictionary {
	return Dictionary{
		domain.TagEquipment: {
			"longwall",
			"dragline",
			"excavator",
			"haul truck",
			"conveyor",
			"shearer",
			"continuous miner",
			"roof bolter",
			"shuttle car",
			"ventilation fan",
			"crusher",
			"loader",
			"drill rig",
			"gas monitor",
		},
		domain.TagHazard: {
			"methane",
			"gas",
			"dust",
			"roof fall",
			"rockburst",
			"inrush",
			"explosion",
			"fire",
			"collapse",
			"spontaneous combustion",
			"flooding",
			"airblast",
			"toxic fumes",
		},
		domain.TagProcedure: {
			"evacuation procedure",
			"standard operating procedure",
			"emergency response",
			"risk assessment",
			"inspection",
			"isolation",
			"lockout",
			"tagout",
			"permit to work",
			"pre-start check",
		},
		domain.TagRegulation: {
			"mines safety act",
			"work health and safety act",
			"code of practice",
			"recognised standard",
			"regulation",
			"compliance",
			"duty of care",
			"safety management system",
		},
		domain.TagMiningMethod: {
			"longwall mining",
			"open cut",
			"open pit",
			"underground mining",
			"room and pillar",
			"block caving",
			"sublevel stoping",
			"surface mining",
			"strip mining",
		},
		domain.TagMineral: {
			"coal",
			"gold",
			"iron ore",
			"copper",
			"bauxite",
			"nickel",
			"zinc",
			"lithium",
			"uranium",
			"silver",
			"mineral sands",
		},
	}
}
