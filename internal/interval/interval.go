package interval

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/lexihash/internal/domain"
)

// Day is the length of one level step.
const Day = 24 * time.Hour

// Seed terms of the level sequence. Every successful review moves a card to
// the next term strictly greater than its current level.
const (
	first  = 2
	second = 3
)

// maxDays is the largest level Duration can represent exactly.
const maxDays = math.MaxInt64 / int64(Day)

// NextLevel returns the level a card moves to after a review.
// A failed review resets the card to 0. A successful one advances it along
// 2, 3, 5, 8, 13, ... to the first term greater than level. Levels at or
// past the last term that fits in an int have no successor.
func NextLevel(level int, success bool) (int, error) {
	if level < 0 {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidLevel, level)
	}
	if !success {
		return 0, nil
	}

	a, b := first, second
	if level < a {
		return a, nil
	}
	for b <= level {
		if b > math.MaxInt-a {
			return 0, fmt.Errorf("%w: no level above %d", domain.ErrInvalidLevel, level)
		}
		a, b = b, a+b
	}
	return b, nil
}

// Duration converts a level into the time between reviews. Levels too large
// to represent saturate at the maximum duration.
func Duration(level int) time.Duration {
	if int64(level) > maxDays {
		return math.MaxInt64
	}
	return time.Duration(level) * Day
}

// Ladder lists the first n levels a new card passes through when every
// review succeeds, starting from 0. It stops early at the last level that
// fits in an int.
func Ladder(n int) []int {
	if n <= 0 {
		return nil
	}
	levels := make([]int, 0, n)
	level := 0
	for len(levels) < n {
		levels = append(levels, level)
		next, err := NextLevel(level, true)
		if err != nil {
			break
		}
		level = next
	}
	return levels
}
