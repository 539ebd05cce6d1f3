package scoring

import (
	"math"

	"github.com/linguagate/linguagate/internal/catalog"
)

// ScaleMapper converts raw correctness into a scaled score and a level
// label. Registered per profile so alternative calibrations can be added
// without touching the scoring entry point.
type ScaleMapper interface {
	Scale(correct, total int) (score int, level catalog.Level)
}

var scaleRegistry = map[string]ScaleMapper{}

// RegisterScale binds a mapper to a key like "cefr.v1".
func RegisterScale(key string, m ScaleMapper) {
	if key == "" || m == nil {
		return
	}
	scaleRegistry[key] = m
}

// ScaleFor fetches a registered mapper, defaulting to the CEFR scale.
func ScaleFor(key string) ScaleMapper {
	if m, ok := scaleRegistry[key]; ok {
		return m
	}
	return CEFRScale{}
}

// DefaultScaleKey is the calibration used for language proficiency exams.
const DefaultScaleKey = "cefr.v1"

func init() {
	RegisterScale(DefaultScaleKey, CEFRScale{})
}

// CEFRScale maps percentage correctness onto the 0..699 point scale and
// buckets the result into CEFR bands, highest matching band winning.
type CEFRScale struct{}

const MaxScore = 699

type band struct {
	min   int
	level catalog.Level
}

// Inclusive lower bounds, descending.
var cefrBands = []band{
	{600, catalog.LevelC2},
	{500, catalog.LevelC1},
	{400, catalog.LevelB2},
	{300, catalog.LevelB1},
	{200, catalog.LevelA2},
	{0, catalog.LevelA1},
}

func (CEFRScale) Scale(correct, total int) (int, catalog.Level) {
	if total <= 0 {
		return 0, catalog.LevelA1
	}
	pct := float64(correct) / float64(total)
	score := int(math.Round(pct * MaxScore))
	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}
	for _, b := range cefrBands {
		if score >= b.min {
			return score, b.level
		}
	}
	return score, catalog.LevelA1
}
