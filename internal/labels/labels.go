package labels

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultGlyph is shown for classes missing from the table
const DefaultGlyph = "🔈"

// glyphs covers the ESC-50 environmental sound classes
var glyphs = map[string]string{
	// animals
	"dog":     "🐕",
	"rooster": "🐓",
	"pig":     "🐖",
	"cow":     "🐄",
	"frog":    "🐸",
	"cat":     "🐱",
	"hen":     "🐔",
	"insects": "🦟",
	"sheep":   "🐑",
	"crow":    "🐦‍⬛",

	// natural soundscapes
	"rain":           "🌧️",
	"sea_waves":      "🌊",
	"crackling_fire": "🔥",
	"crickets":       "🦗",
	"chirping_birds": "🐦",
	"water_drops":    "💧",
	"wind":           "💨",
	"pouring_water":  "🚰",
	"toilet_flush":   "🚽",
	"thunderstorm":   "⛈️",

	// human, non-speech
	"crying_baby":      "👶",
	"sneezing":         "🤧",
	"clapping":         "👏",
	"breathing":        "😮‍💨",
	"coughing":         "😷",
	"footsteps":        "👣",
	"laughing":         "😂",
	"brushing_teeth":   "🪥",
	"snoring":          "😴",
	"drinking_sipping": "🥤",

	// interior/domestic
	"door_wood_knock":  "🚪",
	"mouse_click":      "🖱️",
	"keyboard_typing":  "⌨️",
	"door_wood_creaks": "🚪",
	"can_opening":      "🥫",
	"washing_machine":  "🧺",
	"vacuum_cleaner":   "🧹",
	"clock_alarm":      "⏰",
	"clock_tick":       "⏱️",
	"glass_breaking":   "🥂",

	// exterior/urban
	"helicopter":   "🚁",
	"chainsaw":     "🪚",
	"siren":        "🚨",
	"car_horn":     "📯",
	"engine":       "🚗",
	"train":        "🚆",
	"church_bells": "🔔",
	"airplane":     "✈️",
	"fireworks":    "🎆",
	"hand_saw":     "🪚",
}

// Annotate returns the display glyph for a class, or DefaultGlyph
func Annotate(class string) string {
	if g, ok := glyphs[class]; ok {
		return g
	}
	return DefaultGlyph
}

// Known reports whether the class has its own glyph
func Known(class string) bool {
	_, ok := glyphs[class]
	return ok
}

// Classes returns every class with its own glyph, sorted
func Classes() []string {
	classes := make([]string, 0, len(glyphs))
	for c := range glyphs {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// DisplayName turns a class identifier into words: "sea_waves" -> "sea waves"
func DisplayName(class string) string {
	return strings.ReplaceAll(class, "_", " ")
}

// FormatConfidence renders a [0,1] confidence as a percentage with one decimal
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}
