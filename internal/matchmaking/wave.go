package matchmaking

import (
	"sort"

	"github.com/scevolution/ladder/internal/ladder"
)

// Elastic window parameters by queue size. The window widens every
// windowStep waves a player has waited, with no cap.
const windowStep = 6

// windowParams returns (base, growth) for the current total queue size.
func windowParams(queueSize int) (int, int) {
	switch {
	case queueSize < 6:
		return 125, 75
	case queueSize < 12:
		return 100, 50
	default:
		return 75, 25
	}
}

// MaxDiff computes the widest acceptable MMR distance for a lead player
// who has waited the given number of waves.
func MaxDiff(queueSize, wavesWaited int) int {
	base, growth := windowParams(queueSize)
	return base + (wavesWaited/windowStep)*growth
}

// sideEntry is a queue entry pinned to one title's race for the duration
// of a wave.
type sideEntry struct {
	entry *Entry
	race  ladder.Race
	mmr   int
}

// Pair is one pairing produced by a wave. BW is always player 1.
type Pair struct {
	BW  sideEntry
	SC2 sideEntry
}

// partition splits the queue into BW-only, SC2-only and dual-title lists,
// each sorted by the entry's max selected MMR, descending.
func partition(entries []*Entry) (x, y, z []*Entry) {
	for _, e := range entries {
		hasBW := e.raceFor(ladder.TitleBW) != ""
		hasSC2 := e.raceFor(ladder.TitleSC2) != ""
		switch {
		case hasBW && hasSC2:
			z = append(z, e)
		case hasBW:
			x = append(x, e)
		default:
			y = append(y, e)
		}
	}
	byMaxMMR := func(list []*Entry) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].maxMMR() > list[j].maxMMR() })
	}
	byMaxMMR(x)
	byMaxMMR(y)
	byMaxMMR(z)
	return x, y, z
}

// toSide pins entries to the race they play for one title.
func toSide(entries []*Entry, title ladder.Title) []sideEntry {
	out := make([]sideEntry, 0, len(entries))
	for _, e := range entries {
		race := e.raceFor(title)
		out = append(out, sideEntry{entry: e, race: race, mmr: e.MMRByRace[race]})
	}
	return out
}

func sideMean(side []sideEntry) float64 {
	if len(side) == 0 {
		return 0
	}
	sum := 0
	for _, s := range side {
		sum += s.mmr
	}
	return float64(sum) / float64(len(side))
}

// balance distributes the dual-title entries across the two sides until
// the sides are equal or the dual list runs out. The smaller side takes
// the highest-MMR dual player when its mean is lower than the other
// side's, the lowest otherwise; equal means alternate.
func balance(x, y []sideEntry, z []*Entry) ([]sideEntry, []sideEntry) {
	// Dual entries sorted by max MMR descending already; keep a working copy.
	pool := make([]*Entry, len(z))
	copy(pool, z)
	takeHigh := true // alternation state for exact mean ties

	for len(x) != len(y) && len(pool) > 0 {
		var small, large *[]sideEntry
		var title ladder.Title
		if len(x) < len(y) {
			small, large, title = &x, &y, ladder.TitleBW
		} else {
			small, large, title = &y, &x, ladder.TitleSC2
		}

		meanS, meanL := sideMean(*small), sideMean(*large)
		var pick int
		switch {
		case meanS < meanL:
			pick = 0 // highest MMR dual player
		case meanS > meanL:
			pick = len(pool) - 1 // lowest
		default:
			if takeHigh {
				pick = 0
			} else {
				pick = len(pool) - 1
			}
			takeHigh = !takeHigh
		}

		e := pool[pick]
		pool = append(pool[:pick], pool[pick+1:]...)
		race := e.raceFor(title)
		*small = append(*small, sideEntry{entry: e, race: race, mmr: e.MMRByRace[race]})
	}
	return x, y
}

// RunWave executes one pairing wave over a snapshot of the queue and
// returns the pairs to create. Entries not paired stay queued.
func RunWave(entries []*Entry) []Pair {
	if len(entries) < 2 {
		return nil
	}
	queueSize := len(entries)

	xe, ye, ze := partition(entries)
	x := toSide(xe, ladder.TitleBW)
	y := toSide(ye, ladder.TitleSC2)
	x, y = balance(x, y, ze)

	// The smaller side leads; the other follows. True tie leads with SC2.
	var lead, follow []sideEntry
	leadIsBW := false
	if len(x) < len(y) {
		lead, follow, leadIsBW = x, y, true
	} else {
		lead, follow = y, x
	}
	if len(lead) == 0 || len(follow) == 0 {
		return nil
	}

	leadMean := sideMean(lead)

	// Priority: distance from the lead-side mean plus wait bonus.
	priority := func(s sideEntry) float64 {
		d := float64(s.mmr) - leadMean
		if d < 0 {
			d = -d
		}
		return d + 10*float64(s.entry.WavesWaited)
	}
	sort.SliceStable(lead, func(i, j int) bool { return priority(lead[i]) > priority(lead[j]) })

	taken := make([]bool, len(follow))
	var pairs []Pair
	for _, l := range lead {
		maxDiff := MaxDiff(queueSize, l.entry.WavesWaited)
		best := -1
		for i, f := range follow {
			if taken[i] {
				continue
			}
			dist := absInt(l.mmr - f.mmr)
			if dist > maxDiff {
				continue
			}
			if best == -1 || closerFollow(l.mmr, follow[i], follow[best]) {
				best = i
			}
		}
		if best == -1 {
			continue
		}
		taken[best] = true
		f := follow[best]
		if leadIsBW {
			pairs = append(pairs, Pair{BW: l, SC2: f})
		} else {
			pairs = append(pairs, Pair{BW: f, SC2: l})
		}
	}
	return pairs
}

// closerFollow reports whether candidate beats current for a lead at
// leadMMR: smaller distance, then fewer waves waited, then lower MMR.
func closerFollow(leadMMR int, candidate, current sideEntry) bool {
	dc := absInt(leadMMR - candidate.mmr)
	du := absInt(leadMMR - current.mmr)
	if dc != du {
		return dc < du
	}
	if candidate.entry.WavesWaited != current.entry.WavesWaited {
		return candidate.entry.WavesWaited < current.entry.WavesWaited
	}
	return candidate.mmr < current.mmr
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
