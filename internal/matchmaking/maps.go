package matchmaking

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// MapPool is the active ladder map pool. Both titles play the same pool.
var MapPool = []string{
	"Eclipse",
	"Polypoid",
	"Vermeer",
	"Retro",
	"Radeon",
	"Neo Sylphid",
	"Fountain of Youth",
}

// MaxVetoes caps how many maps one player can exclude.
const MaxVetoes = 4

// serverTable maps an ordered country pair to the game server both
// players get. Pairs not listed fall back to defaultServer.
var serverTable = map[string]string{
	"KR|KR": "kr-1",
	"KR|US": "us-west",
	"CA|KR": "us-west",
	"US|US": "us-east",
	"CA|US": "us-east",
	"CA|CA": "us-east",
	"DE|DE": "eu-central",
	"DE|FR": "eu-central",
	"DE|GB": "eu-west",
	"FR|GB": "eu-west",
	"GB|GB": "eu-west",
	"AU|AU": "oce",
	"AU|NZ": "oce",
	"BR|BR": "sa-east",
}

const defaultServer = "us-east"

// ServerFor looks up the server for a country pair, order-insensitive.
func ServerFor(countryA, countryB string) string {
	a := strings.ToUpper(strings.TrimSpace(countryA))
	b := strings.ToUpper(strings.TrimSpace(countryB))
	if a > b {
		a, b = b, a
	}
	if s, ok := serverTable[a+"|"+b]; ok {
		return s
	}
	return defaultServer
}

// PickMap selects a uniform random map from the pool minus both players'
// vetoes. A fully vetoed pool falls back to the whole pool.
func PickMap(rng *rand.Rand, vetoesA, vetoesB []string) string {
	vetoed := make(map[string]bool, len(vetoesA)+len(vetoesB))
	for _, v := range vetoesA {
		vetoed[v] = true
	}
	for _, v := range vetoesB {
		vetoed[v] = true
	}
	candidates := make([]string, 0, len(MapPool))
	for _, m := range MapPool {
		if !vetoed[m] {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		candidates = MapPool
	}
	return candidates[rng.Intn(len(candidates))]
}

// ValidateVetoes checks veto count and membership in the pool.
func ValidateVetoes(vetoes []string) error {
	if len(vetoes) > MaxVetoes {
		return fmt.Errorf("at most %d vetoes, got %d", MaxVetoes, len(vetoes))
	}
	pool := make(map[string]bool, len(MapPool))
	for _, m := range MapPool {
		pool[m] = true
	}
	for _, v := range vetoes {
		if !pool[v] {
			return fmt.Errorf("unknown map %q", v)
		}
	}
	return nil
}

// ChatChannelTag generates the in-game channel both players join.
func ChatChannelTag(rng *rand.Rand) string {
	return fmt.Sprintf("scevo%03d", rng.Intn(1000))
}

// Pool returns the map pool alphabetically, for presentation.
func Pool() []string {
	out := make([]string, len(MapPool))
	copy(out, MapPool)
	sort.Strings(out)
	return out
}
