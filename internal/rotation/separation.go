package rotation

import (
	"strconv"

	"github.com/oszuidwest/zwfm-rotator/internal/models"
)

// Default separation gaps. The artist gap is usually overridden from
// configuration; category and title keep their defaults.
const (
	DefaultArtistGap   = 3
	DefaultCategoryGap = 1
	DefaultTitleGap    = 2
)

// EnforceArtistSeparation reorders songs in place so the same artist does
// not appear twice within minGap positions. Collisions with no legal swap
// are left in place.
func EnforceArtistSeparation(songs []models.RotationSong, minGap int) {
	enforceSeparation(songs, minGap, func(s models.RotationSong) string {
		return strconv.FormatInt(s.ArtistID, 10)
	})
}

// EnforceCategorySeparation is EnforceArtistSeparation keyed on category.
func EnforceCategorySeparation(songs []models.RotationSong, minGap int) {
	enforceSeparation(songs, minGap, func(s models.RotationSong) string {
		return strconv.FormatInt(s.CategoryID, 10)
	})
}

// EnforceTitleSeparation is EnforceArtistSeparation keyed on the normalized
// base title, keeping renditions of the same song apart.
func EnforceTitleSeparation(songs []models.RotationSong, minGap int) {
	enforceSeparation(songs, minGap, func(s models.RotationSong) string {
		return BaseTitle(s.Title)
	})
}

// enforceSeparation scans left to right; whenever the key at position i
// repeats within the previous minGap positions it swaps in the nearest
// later song whose key fits i's neighborhood in both directions. The gap
// is clamped to half the list length to keep the constraint satisfiable.
// Best-effort: an unsolvable collision stays put.
func enforceSeparation(songs []models.RotationSong, minGap int, key func(models.RotationSong) string) {
	if len(songs) <= 1 || minGap < 1 {
		return
	}
	if minGap > len(songs)/2 {
		minGap = len(songs) / 2
	}
	if minGap < 1 {
		return
	}

	keys := make([]string, len(songs))
	for i, s := range songs {
		keys[i] = key(s)
	}

	for i := 1; i < len(songs); i++ {
		if !collides(keys, i, keys[i], minGap) {
			continue
		}
		for j := i + 1; j < len(songs); j++ {
			if fits(keys, i, j, minGap) {
				songs[i], songs[j] = songs[j], songs[i]
				keys[i], keys[j] = keys[j], keys[i]
				break
			}
		}
	}
}

// collides reports whether k repeats in the minGap positions before pos.
func collides(keys []string, pos int, k string, minGap int) bool {
	for j := pos - minGap; j < pos; j++ {
		if j >= 0 && keys[j] == k {
			return true
		}
	}
	return false
}

// fits reports whether the candidate at index cand can sit at pos without
// colliding in either direction within minGap. The candidate's own slot is
// ignored since the swap vacates it.
func fits(keys []string, pos, cand, minGap int) bool {
	k := keys[cand]
	for j := pos - minGap; j <= pos+minGap; j++ {
		if j == pos || j == cand || j < 0 || j >= len(keys) {
			continue
		}
		if keys[j] == k {
			return false
		}
	}
	return true
}
