package ladder

import (
	"sort"
	"time"
)

// RankLetters orders the quantile buckets from best to worst.
var RankLetters = []string{"S", "A", "B", "C", "D", "E", "F"}

// Ranked reports whether an MMR entry counts toward the ladder: at least
// one game played, most recent within the ranked window.
func Ranked(gamesPlayed int, lastPlayed time.Time, now time.Time, windowDays int) bool {
	if gamesPlayed <= 0 {
		return false
	}
	return !lastPlayed.Before(now.AddDate(0, 0, -windowDays))
}

// RankLetter assigns a quantile bucket to mmr within the population of
// currently ranked MMRs. Returns "" for an empty population or an
// unranked entry.
func RankLetter(mmr int, rankedMMRs []int) string {
	if len(rankedMMRs) == 0 {
		return ""
	}
	sorted := make([]int, len(rankedMMRs))
	copy(sorted, rankedMMRs)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	// Position of the first entry not better than mmr.
	pos := sort.Search(len(sorted), func(i int) bool { return sorted[i] <= mmr })
	bucket := pos * len(RankLetters) / len(sorted)
	if bucket >= len(RankLetters) {
		bucket = len(RankLetters) - 1
	}
	return RankLetters[bucket]
}
