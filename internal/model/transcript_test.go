package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTurns() []Turn {
	return []Turn{
		{Seq: 1, Speaker: SpeakerSystem, AttemptsCount: 1, Successful: true, Attempts: []Attempt{
			{AttemptNumber: 1, Content: "Hi, can I get a sandwich?", Successful: true},
		}},
		{Seq: 2, Speaker: SpeakerUser, AttemptsCount: 2, Successful: true, Attempts: []Attempt{
			{AttemptNumber: 1, Content: "No."},
			{AttemptNumber: 2, Content: "Sure, which one would you like?", Successful: true},
		}},
		{Seq: 3, Speaker: SpeakerSystem, AttemptsCount: 1, Successful: true, Attempts: []Attempt{
			{AttemptNumber: 1, Content: "The turkey one, please.", Successful: true},
		}},
		{Seq: 4, Speaker: SpeakerUser, AttemptsCount: 1, Attempts: []Attempt{
			{AttemptNumber: 1, Content: "Whatever."},
		}},
	}
}

func TestTranscriptSuccessfulOnly(t *testing.T) {
	sc := &Scenario{ModelRole: "customer", UserRole: "vendor"}
	got := Transcript(sampleTurns(), sc, false)

	assert.Equal(t, []Line{
		{Speaker: SpeakerSystem, Label: "customer", Content: "Hi, can I get a sandwich?"},
		{Speaker: SpeakerUser, Label: "vendor", Content: "Sure, which one would you like?"},
		{Speaker: SpeakerSystem, Label: "customer", Content: "The turkey one, please."},
	}, got)
}

func TestTranscriptAllAttempts(t *testing.T) {
	got := Transcript(sampleTurns(), nil, true)

	assert.Len(t, got, 5)
	assert.Equal(t, "system", got[0].Label)
	assert.True(t, got[1].Retry)
	assert.False(t, got[2].Retry)
	assert.True(t, got[4].Retry)
	assert.Equal(t, "user", got[4].Label)
}

func TestSpeakerForSeq(t *testing.T) {
	want := []Speaker{SpeakerSystem, SpeakerUser, SpeakerSystem, SpeakerUser, SpeakerSystem, SpeakerUser, SpeakerSystem, SpeakerUser}
	for i, sp := range want {
		assert.Equal(t, sp, SpeakerForSeq(i+1), "seq %d", i+1)
	}
}
