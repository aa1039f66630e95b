// Package rotation implements the weighted, constraint-satisfying shuffle
// that turns a playlist's song set into a playable order, and the advisory
// repeat-blocking checks over play history.
package rotation

import (
	"math/rand"

	"github.com/oszuidwest/zwfm-rotator/internal/models"
)

// WeightFloor is the minimum effective weight any song counts for during
// selection. Zero-weight songs keep a small chance of an early slot instead
// of being starved to the end of every cycle. Changing this changes
// selection fairness for zero-weight songs.
const WeightFloor = 0.01

// WeightedShuffle permutes songs in place using a weighted Fisher-Yates:
// for each position the next song is drawn from the remaining candidates
// with probability proportional to its effective weight. Every song keeps
// exactly one slot; weights bias placement, they never exclude.
func WeightedShuffle(songs []models.RotationSong, rng *rand.Rand) {
	for i := 0; i < len(songs)-1; i++ {
		var total float64
		for j := i; j < len(songs); j++ {
			total += effectiveWeight(songs[j])
		}

		draw := rng.Float64() * total

		chosen := len(songs) - 1
		var cumulative float64
		for j := i; j < len(songs); j++ {
			cumulative += effectiveWeight(songs[j])
			if cumulative >= draw {
				chosen = j
				break
			}
		}

		songs[i], songs[chosen] = songs[chosen], songs[i]
	}
}

func effectiveWeight(s models.RotationSong) float64 {
	if s.Weight < WeightFloor {
		return WeightFloor
	}
	return s.Weight
}
