package alias

var adjectives = []string{
	"amber", "ancient", "autumn", "bold", "brave", "bright", "broad", "calm",
	"clever", "cold", "cool", "crimson", "curly", "damp", "dark", "dawn",
	"deep", "eager", "early", "fancy", "fierce", "fluffy", "fragrant", "frosty",
	"gentle", "gilded", "golden", "grand", "green", "hidden", "hollow", "humble",
	"icy", "jolly", "keen", "late", "lively", "lone", "lucky", "misty",
	"modest", "muddy", "nameless", "noble", "odd", "old", "pale", "patient",
	"plain", "polished", "proud", "purple", "quiet", "rapid", "red", "restless",
	"rough", "round", "royal", "rustic", "shy", "silent", "silver", "sleepy",
	"small", "snowy", "solitary", "sparkling", "spring", "steady", "still", "stormy",
	"summer", "sunny", "swift", "tall", "tiny", "twilight", "wandering", "warm",
	"weathered", "white", "wild", "winter", "wispy", "withered", "young", "zesty",
}

var nouns = []string{
	"arch", "bird", "breeze", "brook", "bush", "butterfly", "canyon", "cave",
	"cherry", "cloud", "dew", "dream", "dust", "feather", "field", "fire",
	"firefly", "flower", "fog", "forest", "frog", "frost", "glade", "glitter",
	"grass", "harbor", "haze", "hill", "lake", "leaf", "meadow", "moon",
	"morning", "mountain", "night", "paper", "pebble", "pine", "planet", "pond",
	"rain", "resonance", "ridge", "river", "sea", "shadow", "shape", "silence",
	"sky", "smoke", "snow", "snowflake", "sound", "star", "stone", "sun",
	"sunset", "surf", "thunder", "tree", "valley", "violet", "voice", "water",
	"waterfall", "wave", "wildflower", "wind", "wood",
}
