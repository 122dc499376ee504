package checkout

import (
	"fmt"
	"regexp"
	"strings"
)

// Errors maps group signature → field name → message. The step guard
// passes only when the whole map is empty.
type Errors map[string]map[string]string

func (e Errors) add(signature, field, message string) {
	if e[signature] == nil {
		e[signature] = map[string]string{}
	}
	e[signature][field] = message
}

// Count returns the total number of field errors, for the aggregate
// banner shown above the form.
func (e Errors) Count() int {
	n := 0
	for _, fields := range e {
		n += len(fields)
	}
	return n
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[0-9]{10}$`)
)

const VISITOR_PASS_SIGNATURE = "visitorPass"

type ValidationInput struct {
	State       *State
	Groups      []Group
	Files       map[string]map[string]*FileAttachment
	MemberFiles map[string]map[int]*FileAttachment
}

// Validate is a pure function of the checkout state: no mutation, no
// I/O. It checks every derived field group, the team roster of each team
// group, and the visitor-pass block when any pass days are selected.
func Validate(in ValidationInput) Errors {
	errs := Errors{}
	for _, group := range in.Groups {
		sig := group.Signature()
		fields := group.Fields()
		groupFiles := in.Files[sig]
		validateFields(errs, sig, "", fields, in.State.FormDataBySignature[sig], func(name string) *FileAttachment {
			return groupFiles[name]
		})

		if !HasTeamNameField(fields) {
			continue
		}
		members := in.State.TeamMembersBySignature[sig]
		if cfg, ok := TeamSizeFor(group.Title); ok {
			currentTeamSize := len(members) + 1
			if currentTeamSize < cfg.Min {
				missing := cfg.Min - currentTeamSize
				errs.add(sig, "teamSize", fmt.Sprintf("need %d more member(s) to meet the minimum team size of %d", missing, cfg.Min))
			} else if cfg.Max > 0 && currentTeamSize > cfg.Max {
				errs.add(sig, "teamSize", fmt.Sprintf("team exceeds the maximum size of %d", cfg.Max))
			}
		}
		// Members are validated with the solo set; the single upload per
		// member stands in for its file field.
		for i, member := range members {
			memberFiles := in.MemberFiles[sig]
			idx := i
			validateFields(errs, sig, fmt.Sprintf("member_%d_", i), soloFields(), member, func(string) *FileAttachment {
				return memberFiles[idx]
			})
		}
	}

	// Support-artist entries are optional, but once added each entry
	// must be complete.
	for eventID, benefit := range in.State.FlagshipBenefitsByEvent {
		for i, artist := range benefit.SupportArtists {
			validateFields(errs, fmt.Sprintf("flagship_%d", eventID), fmt.Sprintf("artist_%d_", i), SupportArtistFields(), artist, func(string) *FileAttachment {
				return nil
			})
		}
	}

	if in.State.VisitorPassDays > 0 {
		validateFields(errs, VISITOR_PASS_SIGNATURE, "", VisitorPassFields(), in.State.VisitorPassDetails, func(string) *FileAttachment {
			return nil
		})
	}
	return errs
}

func validateFields(errs Errors, signature, keyPrefix string, fields []Field, values map[string]string, fileFor func(string) *FileAttachment) {
	for _, f := range fields {
		key := keyPrefix + f.Name
		if f.Type == FIELD_FILE {
			if f.Required && fileFor(f.Name) == nil {
				errs.add(signature, key, fmt.Sprintf("%s is required", f.Label))
			}
			continue
		}
		value := strings.TrimSpace(values[f.Name])
		if value == "" {
			if f.Required {
				errs.add(signature, key, fmt.Sprintf("%s is required", f.Label))
			}
			continue
		}
		switch f.Type {
		case FIELD_PHONE:
			if !phoneRe.MatchString(value) {
				errs.add(signature, key, fmt.Sprintf("%s must be exactly 10 digits", f.Label))
			}
		case FIELD_EMAIL:
			if !emailRe.MatchString(value) {
				errs.add(signature, key, fmt.Sprintf("%s must be a valid email address", f.Label))
			}
		}
	}
}
