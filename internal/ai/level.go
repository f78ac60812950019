package ai

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/park285/cheese-peerchess/internal/chess/uci"
)

// Level tunes the engine opponent. The engine reports MultiPV lines and one
// of the first len(CandidateWeights) is picked by weight.
type Level struct {
	Name             string
	SkillLevel       int
	MoveTime         time.Duration
	MultiPV          int
	CandidateWeights []float64
	EvalNoise        int
}

var levels = map[string]Level{
	"level1": {Name: "level1", SkillLevel: 0, MoveTime: 50 * time.Millisecond, MultiPV: 3, CandidateWeights: []float64{0.5, 0.3, 0.2}, EvalNoise: 80},
	"level2": {Name: "level2", SkillLevel: 1, MoveTime: 80 * time.Millisecond, MultiPV: 3, CandidateWeights: []float64{0.6, 0.3, 0.1}, EvalNoise: 60},
	"level3": {Name: "level3", SkillLevel: 3, MoveTime: 140 * time.Millisecond, MultiPV: 3, CandidateWeights: []float64{0.7, 0.2, 0.1}, EvalNoise: 45},
	"level4": {Name: "level4", SkillLevel: 7, MoveTime: 200 * time.Millisecond, MultiPV: 3, CandidateWeights: []float64{0.7, 0.2, 0.1}, EvalNoise: 25},
	"level5": {Name: "level5", SkillLevel: 10, MoveTime: time.Second, MultiPV: 2, CandidateWeights: []float64{0.8, 0.2}, EvalNoise: 10},
	"level6": {Name: "level6", SkillLevel: 16, MoveTime: time.Second, MultiPV: 2, CandidateWeights: []float64{0.9, 0.1}, EvalNoise: 5},
	"level7": {Name: "level7", SkillLevel: 20, MoveTime: 2 * time.Second, MultiPV: 1, CandidateWeights: []float64{1.0}},
}

// LookupLevel resolves a level name or one of the aliases beginner,
// intermediate, advanced and master.
func LookupLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "beginner":
		name = "level1"
	case "intermediate":
		name = "level4"
	case "advanced":
		name = "level6"
	case "master":
		name = "level7"
	}
	l, ok := levels[name]
	if !ok {
		return Level{}, fmt.Errorf("unknown engine level: %s", name)
	}
	l.CandidateWeights = append([]float64(nil), l.CandidateWeights...)
	return l, nil
}

// CustomLevel is a single-line level for an explicit skill and move time.
func CustomLevel(skill int, moveTime time.Duration) Level {
	return Level{Name: "custom", SkillLevel: skill, MoveTime: moveTime, MultiPV: 1, CandidateWeights: []float64{1}}
}

func (l Level) Validate() error {
	switch {
	case l.SkillLevel < 0 || l.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", l.SkillLevel)
	case l.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", l.MultiPV)
	case len(l.CandidateWeights) == 0:
		return fmt.Errorf("candidate weights must not be empty")
	case len(l.CandidateWeights) > l.MultiPV:
		return fmt.Errorf("candidate weights (%d) must not exceed multipv (%d)", len(l.CandidateWeights), l.MultiPV)
	case l.MoveTime < 0:
		return fmt.Errorf("move time must be >= 0: %s", l.MoveTime)
	case l.EvalNoise < 0:
		return fmt.Errorf("eval noise must be >= 0: %d", l.EvalNoise)
	}
	sum := 0.0
	for i, w := range l.CandidateWeights {
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	return nil
}

// EngineOptions maps the level onto process options for the engine.
func (l Level) EngineOptions() uci.Options {
	opt := uci.DefaultOptions()
	opt.SkillLevel = l.SkillLevel
	opt.MultiPV = l.MultiPV
	return opt
}

// selectCandidate picks one of the leading candidates by the level's weights
// and perturbs its score by up to EvalNoise centipawns.
func selectCandidate(l Level, candidates []uci.Candidate, r *lockedRand) (uci.Candidate, bool) {
	if len(candidates) == 0 {
		return uci.Candidate{}, false
	}
	limit := len(l.CandidateWeights)
	if limit > len(candidates) {
		limit = len(candidates)
	}
	total := 0.0
	for i := 0; i < limit; i++ {
		total += l.CandidateWeights[i]
	}
	index := 0
	if total > 0 {
		threshold := r.Float64() * total
		for i := 0; i < limit; i++ {
			threshold -= l.CandidateWeights[i]
			if threshold <= 0 {
				index = i
				break
			}
		}
	}
	choice := candidates[index]
	if l.EvalNoise > 0 {
		offset := r.Intn(2*l.EvalNoise+1) - l.EvalNoise
		choice.EvalCP = saturatingAdd(choice.EvalCP, offset)
	}
	return choice, true
}

func saturatingAdd(a, b int) int {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt {
		return math.MaxInt
	}
	if sum < math.MinInt {
		return math.MinInt
	}
	return int(sum)
}
