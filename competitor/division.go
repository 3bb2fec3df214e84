package competitor

// Division is a tier on the ladder. Divisions are ordered; a competitor moves
// exactly one tier per promotion or demotion.
type Division int

const (
	// DivisionNovice is the entry tier.
	DivisionNovice Division = iota
	// DivisionExpert is the second tier.
	DivisionExpert
	// DivisionMaster is the third tier.
	DivisionMaster
	// DivisionChampion is the exclusive top tier: at most one active
	// competitor holds it at any time.
	DivisionChampion
)

// String returns the lower-case division name.
func (d Division) String() string {
	switch d {
	case DivisionNovice:
		return "novice"
	case DivisionExpert:
		return "expert"
	case DivisionMaster:
		return "master"
	case DivisionChampion:
		return "champion"
	default:
		return "unknown"
	}
}

// ParseDivision maps a division name to its ordinal. Unknown names map to
// DivisionNovice with ok=false.
func ParseDivision(s string) (Division, bool) {
	switch s {
	case "novice":
		return DivisionNovice, true
	case "expert":
		return DivisionExpert, true
	case "master":
		return DivisionMaster, true
	case "champion":
		return DivisionChampion, true
	default:
		return DivisionNovice, false
	}
}

// Above returns the next tier up, capped at Champion.
func (d Division) Above() Division {
	if d >= DivisionChampion {
		return DivisionChampion
	}
	return d + 1
}

// Below returns the next tier down, capped at Novice.
func (d Division) Below() Division {
	if d <= DivisionNovice {
		return DivisionNovice
	}
	return d - 1
}
