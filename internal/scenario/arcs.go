package scenario

// BuiltIn returns the predefined story arcs keyed by id. Built-ins
// cover the common run shapes so most simulations never need a YAML
// file.
func BuiltIn() map[string]Arc {
	return map[string]Arc{
		"genesis": {
			Name:        "Genesis",
			Description: "A young world fills with life, then settles into balance.",
			Phases: []Phase{
				{
					Name:        "dawn",
					Description: "The first beings stir and multiply across an empty land",
					Bias:        Bias{SpawnFactor: 2.5, GodEventFactor: 0.5},
					Triggers: []Trigger{
						{Event: "population", Value: 40, Next: "flourishing"},
						{Event: "iteration", Value: 12, Next: "flourishing"},
					},
				},
				{
					Name:        "flourishing",
					Description: "Life crowds every valley and the gods begin to take notice",
					Bias:        Bias{SpawnFactor: 1.5, GodEventFactor: 1.5},
					Triggers: []Trigger{
						{Event: "iteration", Value: 30, Next: "balance"},
					},
				},
				{
					Name:        "balance",
					Description: "The world finds its rhythm",
				},
			},
		},
		"cataclysm": {
			Name:        "Cataclysm",
			Description: "Quiet prosperity shattered by an age of divine upheaval.",
			Phases: []Phase{
				{
					Name:        "calm",
					Description: "An uneasy stillness settles over the world",
					Bias:        Bias{GodEventFactor: 0.3},
					Triggers: []Trigger{
						{Event: "iteration", Value: 8, Next: "upheaval"},
					},
				},
				{
					Name:        "upheaval",
					Description: "The heavens split and the gods walk among mortals",
					Bias:        Bias{GodEventFactor: 3.0, SpawnFactor: 0.5},
					Triggers: []Trigger{
						{Event: "iteration", Value: 24, Next: "aftermath"},
					},
				},
				{
					Name:        "aftermath",
					Description: "Survivors rebuild among the ruins",
					Bias:        Bias{SpawnFactor: 1.8, GodEventFactor: 0.4},
				},
			},
		},
		"withering": {
			Name:        "Withering",
			Description: "A slow decline as the world's vitality drains away.",
			Phases: []Phase{
				{
					Name:        "abundance",
					Description: "The old world in its full strength",
					Triggers: []Trigger{
						{Event: "iteration", Value: 10, Next: "decline"},
					},
				},
				{
					Name:        "decline",
					Description: "Births grow rare and the wild places fall silent",
					Bias:        Bias{SpawnFactor: 0.4},
					Triggers: []Trigger{
						{Event: "iteration", Value: 25, Next: "twilight"},
					},
				},
				{
					Name:        "twilight",
					Description: "Only the hardiest beings remain under a fading sun",
					Bias:        Bias{SpawnFactor: 0.1, GodEventFactor: 1.2},
				},
			},
		},
	}
}
