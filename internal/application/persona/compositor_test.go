package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-persona-api/internal/domain/entity"
)

func allCompositors(t *testing.T) []Compositor {
	t.Helper()
	out := make([]Compositor, 0, 3)
	for _, s := range []string{StrategyLayered, StrategyVoice, StrategyArchetype} {
		c, err := NewCompositor(s, MustDefaultTables())
		require.NoError(t, err)
		assert.Equal(t, s, c.Name())
		out = append(out, c)
	}
	return out
}

func TestDefaultTablesCoverEnumerations(t *testing.T) {
	tables, err := DefaultTables()
	require.NoError(t, err)

	assert.Len(t, tables.Planets, 10)
	assert.Len(t, tables.Signs, 12)
	assert.Len(t, tables.Houses, 12)
	assert.NotEmpty(t, tables.Retrograde)
	assert.Contains(t, tables.Closing, "not a helpful assistant")
}

func TestParseTablesRejectsIncompleteData(t *testing.T) {
	_, err := ParseTables([]byte("planets:\n  sun:\n    concerns: x\n"))
	assert.ErrorContains(t, err, "missing planet")

	_, err = ParseTables([]byte("planets:\n  vulcan:\n    concerns: x\n"))
	assert.ErrorContains(t, err, "unknown planet")

	_, err = ParseTables([]byte("planets: ["))
	assert.Error(t, err)
}

func TestComposeIsPure(t *testing.T) {
	for _, c := range allCompositors(t) {
		for _, b := range entity.AllBodies() {
			for _, s := range entity.AllSigns() {
				first := c.Compose(b, s, 7, true)
				second := c.Compose(b, s, 7, true)
				assert.Equal(t, first, second, "%s %s %s", c.Name(), b, s)
			}
		}
	}
}

func TestComposeOrderAndIngredients(t *testing.T) {
	tables := MustDefaultTables()
	c, err := NewCompositor(StrategyLayered, tables)
	require.NoError(t, err)

	out := c.Compose(entity.BodyMars, entity.SignAries, 3, true)

	what := strings.Index(out, tables.Planets[entity.BodyMars].Concerns)
	how := strings.Index(out, tables.Signs[entity.SignAries].Style)
	where := strings.Index(out, tables.Houses[3])
	rx := strings.Index(out, tables.Retrograde)
	closing := strings.Index(out, tables.Closing)

	for _, idx := range []int{what, how, where, rx, closing} {
		require.GreaterOrEqual(t, idx, 0, out)
	}
	assert.True(t, what < how && how < where && where < rx && rx < closing, out)
	assert.Contains(t, out, "3rd house")
}

func TestComposeRetrogradeClauseOnlyWhenRetrograde(t *testing.T) {
	tables := MustDefaultTables()
	for _, c := range allCompositors(t) {
		direct := c.Compose(entity.BodySaturn, entity.SignCapricorn, 10, false)
		retro := c.Compose(entity.BodySaturn, entity.SignCapricorn, 10, true)

		assert.NotContains(t, direct, tables.Retrograde, c.Name())
		assert.Contains(t, retro, tables.Retrograde, c.Name())
		assert.True(t, strings.HasSuffix(retro, tables.Closing), c.Name())
	}
}

func TestComposeFallbackForUnknownPlacement(t *testing.T) {
	for _, c := range allCompositors(t) {
		assert.Equal(t, "chiron in Virgo", c.Compose(entity.Body("chiron"), entity.SignVirgo, 6, false))
		assert.Equal(t, "sun in Ophiuchus", c.Compose(entity.BodySun, entity.Sign("Ophiuchus"), 1, false))
	}
}

func TestComposeSkipsInvalidHouse(t *testing.T) {
	c, err := NewCompositor(StrategyArchetype, MustDefaultTables())
	require.NoError(t, err)

	out := c.Compose(entity.BodyMoon, entity.SignCancer, 0, false)
	assert.NotContains(t, out, "Your stage is")
	assert.Contains(t, out, "The Keeper of Moods")
}

func TestNewCompositorUnknownStrategy(t *testing.T) {
	_, err := NewCompositor("haiku", MustDefaultTables())
	assert.Error(t, err)

	c, err := NewCompositor("", MustDefaultTables())
	require.NoError(t, err)
	assert.Equal(t, StrategyLayered, c.Name())
}

func TestOrdinal(t *testing.T) {
	want := []string{"1st", "2nd", "3rd", "4th", "5th", "6th", "7th", "8th", "9th", "10th", "11th", "12th"}
	for i, w := range want {
		assert.Equal(t, w, ordinal(i+1))
	}
}
