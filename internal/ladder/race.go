package ladder

import "fmt"

// Race identifies a playable race within one of the two titles.
type Race string

const (
	BWTerran   Race = "bw_terran"
	BWZerg     Race = "bw_zerg"
	BWProtoss  Race = "bw_protoss"
	SC2Terran  Race = "sc2_terran"
	SC2Zerg    Race = "sc2_zerg"
	SC2Protoss Race = "sc2_protoss"
)

// Title is one of the two supported game titles.
type Title string

const (
	TitleBW  Title = "bw"
	TitleSC2 Title = "sc2"
)

// AllRaces lists every valid race identifier.
var AllRaces = []Race{BWTerran, BWZerg, BWProtoss, SC2Terran, SC2Zerg, SC2Protoss}

// IsValid reports whether r is one of the six race identifiers.
func (r Race) IsValid() bool {
	switch r {
	case BWTerran, BWZerg, BWProtoss, SC2Terran, SC2Zerg, SC2Protoss:
		return true
	}
	return false
}

// Title returns the game title the race belongs to.
func (r Race) Title() Title {
	switch r {
	case BWTerran, BWZerg, BWProtoss:
		return TitleBW
	default:
		return TitleSC2
	}
}

// ParseRace converts a wire string into a Race.
func ParseRace(s string) (Race, error) {
	r := Race(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown race %q", s)
	}
	return r, nil
}

// ValidateSelection enforces the queue selection rules: one or two races,
// at most one per title.
func ValidateSelection(races []Race) error {
	if len(races) == 0 || len(races) > 2 {
		return fmt.Errorf("select 1 or 2 races, got %d", len(races))
	}
	var bw, sc2 int
	for _, r := range races {
		if !r.IsValid() {
			return fmt.Errorf("unknown race %q", r)
		}
		if r.Title() == TitleBW {
			bw++
		} else {
			sc2++
		}
	}
	if bw > 1 || sc2 > 1 {
		return fmt.Errorf("at most one race per title (got %d BW, %d SC2)", bw, sc2)
	}
	return nil
}
