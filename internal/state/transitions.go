package state

// validTransitions contains the permitted forward transitions of the wizard.
// StateIdle is always reachable: cancellation works from every state.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAddCode,
	},
	StateAddCode: {
		StateAddTitle,
	},
	StateAddTitle: {
		StateDescriptionChoice,
	},
	StateDescriptionChoice: {
		StateAddDescription,
		StateSourceURLChoice,
	},
	StateAddDescription: {
		StateSourceURLChoice,
	},
	StateSourceURLChoice: {
		StateAddSourceURL,
		StateLinksChoice,
	},
	StateAddSourceURL: {
		StateLinksChoice,
	},
	StateLinksChoice: {
		StateAddLinks,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
