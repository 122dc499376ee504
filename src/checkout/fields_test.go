package checkout

import (
	"testing"

	"festreg/src/models"

	"github.com/stretchr/testify/assert"
)

func fieldNames(fields []Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

func TestEventFieldsSoloFallback(t *testing.T) {
	titles := []string{
		"CODE SPRINT",
		"OPEN MIC",
		"PHOTOGRAPHY WALK",
		"treasure hunt",
		"",
	}
	for _, title := range titles {
		fields := EventFields(models.EventCatalogItem{Title: title})
		assert.Equal(t, fieldNames(soloFields()), fieldNames(fields), "title %q should use the solo set", title)
		assert.False(t, HasTeamNameField(fields))
	}
}

func TestEventFieldsEsportsTeam(t *testing.T) {
	fields := EventFields(models.EventCatalogItem{Title: "VALORANT SHOWDOWN"})
	names := fieldNames(fields)
	assert.Contains(t, names, "teamName")
	assert.Contains(t, names, "discordId")
	assert.Contains(t, names, "inGameId")
}

func TestEventFieldsEsportsSquad(t *testing.T) {
	for _, title := range []string{"BGMI RUMBLE", "FREE FIRE FACEOFF"} {
		fields := EventFields(models.EventCatalogItem{Title: title})
		names := fieldNames(fields)
		assert.Contains(t, names, "teamName", title)
		assert.Contains(t, names, "leaderIGN", title)
		assert.Contains(t, names, "leaderUID", title)
	}
}

func TestEventFieldsTeam(t *testing.T) {
	for _, title := range []string{"RAMPWALK", "GROUP DANCE", "BANDJAM", "BAND JAM NIGHT"} {
		fields := EventFields(models.EventCatalogItem{Title: title})
		assert.True(t, HasTeamNameField(fields), title)
		assert.NotContains(t, fieldNames(fields), "discordId", title)
	}
}

func TestEventFieldsNonEmptyForAnyTitle(t *testing.T) {
	fields := EventFields(models.EventCatalogItem{Title: "UNKNOWN EVENT 42"})
	assert.NotEmpty(t, fields)
}

func TestTeamSizeForUnknownTitle(t *testing.T) {
	_, ok := TeamSizeFor("SOLO SINGING")
	assert.False(t, ok)
}

func TestTeamSizeForKnownTitle(t *testing.T) {
	cfg, ok := TeamSizeFor("BANDJAM")
	assert.True(t, ok)
	assert.Equal(t, 3, cfg.Min)
	assert.Equal(t, 8, cfg.Max)
}

// Every entry in the size table must describe a team-schema event;
// otherwise the constraint silently never runs. This guards the exact
// string keys against catalog drift.
func TestTeamSizeConfigMatchesTeamSchemas(t *testing.T) {
	for title, cfg := range teamSizeConfigs {
		fields := EventFields(models.EventCatalogItem{Title: title})
		assert.True(t, HasTeamNameField(fields), "size config for %q has no team schema", title)
		assert.Greater(t, cfg.Min, 1, title)
		assert.GreaterOrEqual(t, cfg.Max, cfg.Min, title)
	}
}
