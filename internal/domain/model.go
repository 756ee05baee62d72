package domain

// Model identifies a backend model together with its capabilities. Extended
// reasoning is a first-class field rather than a suffix on the identifier, so
// the gateway can select output budgets without string parsing.
type Model struct {
	ID                string `yaml:"id"`
	ExtendedReasoning bool   `yaml:"extended_reasoning"`
}
