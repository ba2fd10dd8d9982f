package content

// Fixed pools. Order matters: the generator indexes into these, so changing
// an entry (or its position) changes what every client derives for old seeds.

var wordPool = []string{
	"anchor", "breeze", "candle", "dragon", "eclipse",
	"falcon", "garnet", "harbor", "island", "jungle",
	"kernel", "lantern", "meadow", "nectar", "orchid",
	"pebble", "quiver", "ripple", "saddle", "tundra",
	"umbrella", "velvet", "willow", "zephyr", "copper",
	"ember", "frost", "glacier", "horizon", "ivory",
	"marble", "onyx", "prairie", "quartz", "summit",
	"thicket", "vortex", "walnut", "yonder", "zenith",
}

var questionPool = []Question{
	{
		Prompt:  "Which planet has the most moons?",
		Options: []string{"Jupiter", "Saturn", "Neptune", "Mars"},
		Answer:  1,
	},
	{
		Prompt:  "What is the largest ocean on Earth?",
		Options: []string{"Atlantic", "Indian", "Pacific", "Arctic"},
		Answer:  2,
	},
	{
		Prompt:  "How many bones does an adult human have?",
		Options: []string{"186", "206", "226", "246"},
		Answer:  1,
	},
	{
		Prompt:  "Which element has the chemical symbol Au?",
		Options: []string{"Silver", "Aluminium", "Gold", "Argon"},
		Answer:  2,
	},
	{
		Prompt:  "In which year did the first moon landing happen?",
		Options: []string{"1965", "1967", "1969", "1971"},
		Answer:  2,
	},
	{
		Prompt:  "What is the capital of Canada?",
		Options: []string{"Toronto", "Vancouver", "Montreal", "Ottawa"},
		Answer:  3,
	},
	{
		Prompt:  "Which animal is the fastest on land?",
		Options: []string{"Cheetah", "Pronghorn", "Greyhound", "Lion"},
		Answer:  0,
	},
	{
		Prompt:  "How many strings does a standard violin have?",
		Options: []string{"4", "5", "6", "7"},
		Answer:  0,
	},
	{
		Prompt:  "Which language has the most native speakers?",
		Options: []string{"English", "Hindi", "Spanish", "Mandarin"},
		Answer:  3,
	},
	{
		Prompt:  "What is the smallest prime number?",
		Options: []string{"0", "1", "2", "3"},
		Answer:  2,
	},
	{
		Prompt:  "Which country hosted the 2016 Summer Olympics?",
		Options: []string{"China", "Brazil", "UK", "Japan"},
		Answer:  1,
	},
	{
		Prompt:  "What gas do plants absorb from the atmosphere?",
		Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"},
		Answer:  2,
	},
}

// PoolSizes reports the fixed pool sizes (handy for capacity checks in tests
// and the seeding tool).
func PoolSizes() (words, questions int) {
	return len(wordPool), len(questionPool)
}
