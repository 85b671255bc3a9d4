package extract

import (
	"strconv"
	"strings"
)

// moduleBounds maps course-outcome upper bounds to modules; anything above
// the last bound lands in module 5.
var moduleBounds = []struct {
	maxCO  int
	module int
}{
	{2, 1},
	{4, 2},
	{6, 3},
	{8, 4},
}

const lastModule = 5

// ModuleFor maps a course-outcome number to a module in 1..5.
func ModuleFor(co int) int {
	for _, b := range moduleBounds {
		if co <= b.maxCO {
			return b.module
		}
	}
	return lastModule
}

// DifficultyFor maps a cognitive level to a difficulty tier.
func DifficultyFor(level int) Difficulty {
	switch {
	case level <= 1:
		return DifficultyEasy
	case level <= 2:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// ModuleForCO parses a course-outcome code and classifies it. Unparsable
// input counts as the default course outcome.
func ModuleForCO(co string) int {
	return ModuleFor(atoiOr(co, DefaultCourseOutcome))
}

// DifficultyForLevel parses a level code and classifies it. Unparsable
// input counts as the default level.
func DifficultyForLevel(level string) Difficulty {
	return DifficultyFor(atoiOr(level, DefaultLevel))
}

func atoiOr(s, fallback string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(fallback)
	return n
}
