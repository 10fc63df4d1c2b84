package usecase

// Persona is the fixed system instruction that sets reply tone.
type Persona struct {
	Name        string
	Instruction string
}

var (
	PersonaComforting = Persona{
		Name:        "comforting",
		Instruction: "You are a helpful assistant that provides comforting and supportive responses about appliance rentals.",
	}
	PersonaEnthusiastic = Persona{
		Name:        "enthusiastic",
		Instruction: "You are an enthusiastic assistant that engages positively and offers helpful information about appliance rentals.",
	}
	PersonaNeutral = Persona{
		Name:        "neutral",
		Instruction: "You are a neutral and informative assistant for appliance rentals.",
	}
)

// SelectPersona maps a compound sentiment score to a persona. Both
// thresholds are exclusive: -0.5 and 0.5 are neutral.
func SelectPersona(score float64) Persona {
	switch {
	case score < -0.5:
		return PersonaComforting
	case score > 0.5:
		return PersonaEnthusiastic
	default:
		return PersonaNeutral
	}
}
