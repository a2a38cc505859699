package model

// Label returns the scenario role name for a speaker, falling back to the
// speaker itself when no scenario is known.
func (s *Scenario) Label(sp Speaker) string {
	if s == nil {
		return string(sp)
	}
	if sp == SpeakerSystem {
		return s.ModelRole
	}
	return s.UserRole
}

// Transcript renders turns in creation order as role-labelled lines. By
// default only each turn's successful attempt appears; with allAttempts the
// rejected attempts are included too and marked Retry.
func Transcript(turns []Turn, sc *Scenario, allAttempts bool) []Line {
	lines := make([]Line, 0, len(turns))
	for _, t := range turns {
		label := sc.Label(t.Speaker)
		if !allAttempts {
			if a := t.SuccessfulAttempt(); a != nil {
				lines = append(lines, Line{Speaker: t.Speaker, Label: label, Content: a.Content})
			}
			continue
		}
		for _, a := range t.Attempts {
			lines = append(lines, Line{Speaker: t.Speaker, Label: label, Content: a.Content, Retry: !a.Successful})
		}
	}
	return lines
}
