package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationRetrograde(t *testing.T) {
	assert.True(t, Observation{Speed: -0.01}.Retrograde())
	assert.False(t, Observation{Speed: 0}.Retrograde())
	assert.False(t, Observation{Speed: 1.2}.Retrograde())
}

func TestFractionalHour(t *testing.T) {
	assert.InDelta(t, 14.5, FractionalHour(14, 30, 0), 1e-12)
	assert.InDelta(t, 0.0, FractionalHour(0, 0, 0), 1e-12)
	assert.InDelta(t, 23+59.0/60+59.0/3600, FractionalHour(23, 59, 59), 1e-12)
}

func TestBirthInputClockDefaultsToMidnight(t *testing.T) {
	in := &BirthInput{Year: 1990, Month: 6, Day: 15}
	h, m, s := in.Clock()
	assert.Zero(t, h)
	assert.Zero(t, m)
	assert.Zero(t, s)
	assert.False(t, in.HasLocation())

	in.Place = "Lisbon"
	assert.True(t, in.HasLocation())
}

func TestBirthChartCompleteAndOrdered(t *testing.T) {
	chart := &BirthChart{Placements: map[Body]*PlanetPlacement{}}
	for _, b := range []Body{BodyPluto, BodySun, BodyMars} {
		chart.Placements[b] = &PlanetPlacement{Body: b}
	}
	assert.False(t, chart.Complete())

	ordered := chart.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, []Body{BodySun, BodyMars, BodyPluto}, []Body{ordered[0].Body, ordered[1].Body, ordered[2].Body})

	for _, b := range AllBodies() {
		chart.Placements[b] = &PlanetPlacement{Body: b}
	}
	assert.True(t, chart.Complete())

	p, ok := chart.Get("MARS")
	require.True(t, ok)
	assert.Equal(t, BodyMars, p.Body)
}

func TestDisplaySender(t *testing.T) {
	assert.Equal(t, "User", (&ChatMessage{Sender: "user"}).DisplaySender())
	assert.Equal(t, "System", (&ChatMessage{Sender: "System"}).DisplaySender())
	assert.Equal(t, "Venus", (&ChatMessage{Sender: "venus"}).DisplaySender())
}

func TestChatMessagePatchKeepsIdentity(t *testing.T) {
	msg := NewChatMessage("mars", "...")
	msg.Status = MessageStatusPending
	id, ts := msg.ID, msg.Timestamp

	resolved := MessageStatusResolved
	content := "fine, I'll say it"
	ChatMessagePatch{Status: &resolved, Content: &content}.Apply(msg)

	assert.Equal(t, id, msg.ID)
	assert.Equal(t, ts, msg.Timestamp)
	assert.Equal(t, "mars", msg.Sender)
	assert.Equal(t, MessageStatusResolved, msg.Status)
	assert.Equal(t, content, msg.Content)
}
