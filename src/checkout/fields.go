package checkout

import (
	"strings"

	"festreg/src/models"
)

type FieldType string

const (
	FIELD_TEXT   FieldType = "text"
	FIELD_EMAIL  FieldType = "email"
	FIELD_PHONE  FieldType = "phone"
	FIELD_NUMBER FieldType = "number"
	FIELD_SELECT FieldType = "select"
	FIELD_FILE   FieldType = "file"
)

type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

func soloFields() []Field {
	return []Field{
		{Name: "name", Label: "Full Name", Type: FIELD_TEXT, Required: true},
		{Name: "collegeMailId", Label: "College Email ID", Type: FIELD_EMAIL, Required: true},
		{Name: "phone", Label: "Phone Number", Type: FIELD_PHONE, Required: true},
		{Name: "gender", Label: "Gender", Type: FIELD_SELECT, Required: true, Options: []string{"Male", "Female", "Other"}},
		{Name: "age", Label: "Age", Type: FIELD_NUMBER, Required: true},
		{Name: "institution", Label: "Institution Name", Type: FIELD_TEXT, Required: true},
		{Name: "referral", Label: "Referral Code", Type: FIELD_TEXT, Required: false},
		{Name: "idCard", Label: "Institution ID Card", Type: FIELD_FILE, Required: true},
		{Name: "address", Label: "Address", Type: FIELD_TEXT, Required: true},
	}
}

// EventFields maps an event to its registration form schema. Total: any
// title the rules below do not recognize falls back to the solo set.
func EventFields(event models.EventCatalogItem) []Field {
	title := strings.ToUpper(event.Title)
	switch {
	case strings.Contains(title, "VALORANT"):
		return append(soloFields(),
			Field{Name: "teamName", Label: "Team Name", Type: FIELD_TEXT, Required: true},
			Field{Name: "discordId", Label: "Leader Discord ID", Type: FIELD_TEXT, Required: true},
			Field{Name: "inGameId", Label: "Leader In-Game ID", Type: FIELD_TEXT, Required: true},
		)
	case strings.Contains(title, "BGMI"), strings.Contains(title, "FREE FIRE"):
		return append(soloFields(),
			Field{Name: "teamName", Label: "Squad Name", Type: FIELD_TEXT, Required: true},
			Field{Name: "leaderIGN", Label: "Leader IGN", Type: FIELD_TEXT, Required: true},
			Field{Name: "leaderUID", Label: "Leader UID", Type: FIELD_TEXT, Required: true},
		)
	case strings.Contains(title, "RAMPWALK"),
		strings.Contains(title, "DANCE"),
		strings.Contains(title, "BANDJAM"),
		strings.Contains(title, "BAND JAM"):
		return append(soloFields(),
			Field{Name: "teamName", Label: "Team Name", Type: FIELD_TEXT, Required: true},
		)
	default:
		return soloFields()
	}
}

// VisitorPassFields is the personal-info schema for the non-participant
// visitor pass block.
func VisitorPassFields() []Field {
	return []Field{
		{Name: "name", Label: "Full Name", Type: FIELD_TEXT, Required: true},
		{Name: "email", Label: "Email", Type: FIELD_EMAIL, Required: true},
		{Name: "phone", Label: "Phone Number", Type: FIELD_PHONE, Required: true},
		{Name: "institution", Label: "Institution Name", Type: FIELD_TEXT, Required: false},
	}
}

// SupportArtistFields covers the flagship add-on entry for one accompanying
// support artist.
func SupportArtistFields() []Field {
	return []Field{
		{Name: "name", Label: "Artist Name", Type: FIELD_TEXT, Required: true},
		{Name: "phone", Label: "Phone Number", Type: FIELD_PHONE, Required: true},
		{Name: "role", Label: "Role", Type: FIELD_TEXT, Required: false},
	}
}

type TeamSizeConfig struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// teamSizeConfigs is keyed by the exact catalog title. An event missing
// from the table has no size constraint enforced; keep this in sync with
// the catalog (checked in tests).
var teamSizeConfigs = map[string]TeamSizeConfig{
	"RAMPWALK":          {Min: 4, Max: 12},
	"GROUP DANCE":       {Min: 5, Max: 15},
	"STREET DANCE":      {Min: 4, Max: 10},
	"BANDJAM":           {Min: 3, Max: 8},
	"VALORANT SHOWDOWN": {Min: 5, Max: 6},
	"BGMI RUMBLE":       {Min: 4, Max: 5},
	"FREE FIRE FACEOFF": {Min: 4, Max: 5},
}

func TeamSizeFor(title string) (TeamSizeConfig, bool) {
	cfg, ok := teamSizeConfigs[title]
	return cfg, ok
}

// HasTeamNameField reports whether the schema includes a teamName field,
// the marker the validation engine uses to run roster checks.
func HasTeamNameField(fields []Field) bool {
	for _, f := range fields {
		if f.Name == "teamName" {
			return true
		}
	}
	return false
}
