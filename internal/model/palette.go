package model

var FormationColors = []string{
	"#ef4444", "#f97316", "#eab308", "#84cc16", "#22c55e", "#14b8a6", "#06b6d4",
	"#0ea5e9", "#3b82f6", "#6366f1", "#8b5cf6", "#a855f7", "#d946ef", "#ec4899",
	"#f43f5e", "#64748b", "#0d9488", "#2563eb", "#7c3aed", "#be185d",
}

var FormationPatterns = []string{
	"dots", "hatching", "triangles", "diamonds", "stripes-h", "stripes-v", "circles",
	"grid", "chevrons", "waves", "zigzag", "cross", "bricks", "hexagons",
}

// SeedIndex maps a seed onto [0, size) with a 31-multiplier polynomial hash
// over UTF-16 code units, wrapping at 32 bits. Identical seeds always map to
// the same index.
func SeedIndex(seed string, size int) int {
	if size <= 0 {
		return 0
	}
	var hash int32
	for _, r := range seed {
		if r >= 0x10000 {
			r -= 0x10000
			hash = hash<<5 - hash + int32(0xD800+(r>>10))
			hash = hash<<5 - hash + int32(0xDC00+(r&0x3FF))
			continue
		}
		hash = hash<<5 - hash + int32(r)
	}
	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % int64(size))
}

func FormationColor(seed string) string {
	return FormationColors[SeedIndex(seed, len(FormationColors))]
}

func FormationPattern(seed string) string {
	return FormationPatterns[SeedIndex(seed, len(FormationPatterns))]
}
