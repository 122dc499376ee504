package checkout

import (
	"fmt"

	"festreg/src/models"

	"github.com/gosimple/slug"
)

type GroupKind string

const (
	GROUP_SOLO GroupKind = "solo"
	GROUP_TEAM GroupKind = "team"
)

// Group identifies one logical form in the wizard: either every selected
// solo-schema event merged into a single form, or one specific
// team/esports event. The string signature is only produced at the
// storage boundary; everything else works with the typed value.
type Group struct {
	Kind    GroupKind
	EventID uint
	Title   string
}

func (g Group) Signature() string {
	if g.Kind == GROUP_SOLO {
		return "solo"
	}
	return fmt.Sprintf("team_%d_%s", g.EventID, slug.Make(g.Title))
}

// Fields returns the form schema for the group. The merged solo group
// always uses the solo set.
func (g Group) Fields() []Field {
	if g.Kind == GROUP_SOLO {
		return soloFields()
	}
	return EventFields(models.EventCatalogItem{ID: g.EventID, Title: g.Title})
}

type AppliedPromo struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discountAmount"`
	Message        string  `json:"message,omitempty"`
}

type FlagshipBenefit struct {
	SupportArtists     []map[string]string `json:"supportArtists,omitempty"`
	ExtraVisitorPasses int                 `json:"extraVisitorPasses,omitempty"`
}

// State is the single mutable checkout aggregate. It lives for one
// browser-tab session and is mutated only through Machine.Update.
// AppliedPromo is deliberately excluded from persistence so a stale
// discount cannot survive a reload.
type State struct {
	SelectedEventIDs        []uint                         `json:"selectedEventIds"`
	VisitorPassDays         int                            `json:"visitorPassDays"`
	VisitorPassDetails      map[string]string              `json:"visitorPassDetails"`
	FlagshipBenefitsByEvent map[uint]FlagshipBenefit       `json:"flagshipBenefitsByEvent"`
	FormDataBySignature     map[string]map[string]string   `json:"formDataBySignature"`
	TeamMembersBySignature  map[string][]map[string]string `json:"teamMembersBySignature"`
	PromoInput              string                         `json:"promoInput"`
	AppliedPromo            *AppliedPromo                  `json:"appliedPromo,omitempty"`
}

func NewState() State {
	return State{
		SelectedEventIDs:        []uint{},
		VisitorPassDetails:      map[string]string{},
		FlagshipBenefitsByEvent: map[uint]FlagshipBenefit{},
		FormDataBySignature:     map[string]map[string]string{},
		TeamMembersBySignature:  map[string][]map[string]string{},
	}
}

// Partial carries a sparse state mutation; nil/absent fields are left
// untouched, present fields replace wholesale.
type Partial struct {
	SelectedEventIDs        *[]uint                        `json:"selectedEventIds,omitempty"`
	VisitorPassDays         *int                           `json:"visitorPassDays,omitempty"`
	VisitorPassDetails      map[string]string              `json:"visitorPassDetails,omitempty"`
	FlagshipBenefitsByEvent map[uint]FlagshipBenefit       `json:"flagshipBenefitsByEvent,omitempty"`
	FormDataBySignature     map[string]map[string]string   `json:"formDataBySignature,omitempty"`
	TeamMembersBySignature  map[string][]map[string]string `json:"teamMembersBySignature,omitempty"`
	PromoInput              *string                        `json:"promoInput,omitempty"`
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// FieldGroups derives the ordered list of form groups for the current
// selection: one merged solo group first (when any selected event uses
// the plain solo schema), then one group per team/esports event in
// selection order.
func (s *State) FieldGroups(catalog models.Catalog) []Group {
	events := catalog.Select(s.SelectedEventIDs)
	groups := []Group{}
	hasSolo := false
	teams := []Group{}
	for _, ev := range events {
		if HasTeamNameField(EventFields(ev)) {
			teams = append(teams, Group{Kind: GROUP_TEAM, EventID: ev.ID, Title: ev.Title})
		} else {
			hasSolo = true
		}
	}
	if hasSolo {
		groups = append(groups, Group{Kind: GROUP_SOLO})
	}
	return append(groups, teams...)
}

// FileAttachment is a binary upload held in memory only. Attachments are
// never written to the state store; a reload mid-flow loses them and the
// user re-attaches.
type FileAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
