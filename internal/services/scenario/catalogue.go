package scenario

// Option is one possible response to a scenario
type Option struct {
	ID      string
	Text    string
	Correct bool
}

// Scenario is a disaster prompt with exactly one correct option
type Scenario struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Options     []Option
}

// CorrectOption returns the option that answers the scenario
func (s Scenario) CorrectOption() Option {
	for _, o := range s.Options {
		if o.Correct {
			return o
		}
	}
	return Option{}
}

var catalogue = []Scenario{
	{
		ID:          "earthquake",
		Name:        "Earthquake",
		Description: "The ground starts shaking violently!",
		Icon:        "🌍",
		Options: []Option{
			{ID: "table", Text: "Go under a table", Correct: true},
			{ID: "elevator", Text: "Run to elevator"},
		},
	},
	{
		ID:          "fire",
		Name:        "Fire",
		Description: "Smoke and flames are spreading!",
		Icon:        "🔥",
		Options: []Option{
			{ID: "stairs", Text: "Use stairs and go out", Correct: true},
			{ID: "lift", Text: "Use lift"},
			{ID: "window", Text: "Open window"},
		},
	},
	{
		ID:          "flood",
		Name:        "Flood",
		Description: "Water is rising rapidly!",
		Icon:        "🌊",
		Options: []Option{
			{ID: "higher-ground", Text: "Go to higher ground", Correct: true},
			{ID: "walk-through", Text: "Walk through water"},
		},
	},
	{
		ID:          "gas-leak",
		Name:        "Gas Leak",
		Description: "You smell gas in the building!",
		Icon:        "💨",
		Options: []Option{
			{ID: "outside", Text: "Open windows and go outside", Correct: true},
			{ID: "lights", Text: "Switch on lights"},
			{ID: "match", Text: "Use matchstick"},
		},
	},
	{
		ID:          "lightning",
		Name:        "Lightning",
		Description: "Severe lightning storm outside!",
		Icon:        "⚡",
		Options: []Option{
			{ID: "inside", Text: "Stay inside", Correct: true},
			{ID: "tree", Text: "Stand under tree"},
		},
	},
}
