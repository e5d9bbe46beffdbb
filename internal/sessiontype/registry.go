// Package sessiontype holds the closed catalog of session structural
// variants. Form validation and grid rendering must both consult this table;
// there is deliberately no second copy of the field or role lists anywhere
// else in the program.
package sessiontype

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog tags. The set is closed; unknown tags fail Lookup.
const (
	Lecture      = "lecture"
	Panel        = "panel"
	Symposium    = "symposium"
	Workshop     = "workshop"
	Oration      = "oration"
	GuestLecture = "guest_lecture"
	Discussion   = "discussion"
	Break        = "break"
	Other        = "other"
)

// Participant roles referenced by AllowedRoles. The role→bucket mapping lives
// in the program package; this package only constrains which roles a session
// type may carry.
const (
	RoleSpeaker          = "speaker"
	RoleOrator           = "orator"
	RolePresenter        = "presenter"
	RoleWorkshopLead     = "workshop_lead"
	RoleModerator        = "moderator"
	RoleDiscussionLeader = "discussion_leader"
	RoleChairperson      = "chairperson"
	RoleIntroducer       = "introducer"
)

// Config describes the schema of one session type: the fields a submission
// must carry, the fields it may carry, and the participant roles it permits.
type Config struct {
	Tag            string
	DisplayName    string
	RequiredFields []string
	OptionalFields []string
	AllowedRoles   []string
}

// UnknownTypeError reports a session type tag outside the closed catalog.
type UnknownTypeError struct {
	Tag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("sessiontype: unknown session type %q", e.Tag)
}

var catalog = map[string]Config{
	Lecture: {
		Tag:            Lecture,
		DisplayName:    "Lecture",
		RequiredFields: []string{"title", "speaker_id"},
		OptionalFields: []string{"topic", "description"},
		AllowedRoles:   []string{RoleSpeaker},
	},
	Panel: {
		Tag:            Panel,
		DisplayName:    "Panel",
		RequiredFields: []string{"title", "panelist_ids", "moderator_id"},
		OptionalFields: []string{"topic", "description"},
		AllowedRoles:   []string{RolePresenter, RoleModerator},
	},
	Symposium: {
		Tag:            Symposium,
		DisplayName:    "Symposium",
		RequiredFields: []string{"title", "speaker_ids", "chairperson_id"},
		OptionalFields: []string{"topic", "description"},
		AllowedRoles:   []string{RoleSpeaker, RoleChairperson},
	},
	Workshop: {
		Tag:            Workshop,
		DisplayName:    "Workshop",
		RequiredFields: []string{"title", "workshop_lead_id"},
		OptionalFields: []string{"capacity", "description"},
		AllowedRoles:   []string{RoleWorkshopLead},
	},
	Oration: {
		Tag:            Oration,
		DisplayName:    "Oration",
		RequiredFields: []string{"title", "orator_id"},
		OptionalFields: []string{"description"},
		AllowedRoles:   []string{RoleOrator, RoleChairperson},
	},
	GuestLecture: {
		Tag:            GuestLecture,
		DisplayName:    "Guest Lecture",
		RequiredFields: []string{"title", "speaker_id", "introducer_id"},
		OptionalFields: []string{"topic", "description"},
		AllowedRoles:   []string{RoleSpeaker, RoleIntroducer},
	},
	Discussion: {
		Tag:            Discussion,
		DisplayName:    "Discussion",
		RequiredFields: []string{"title", "discussion_leader_id"},
		OptionalFields: []string{"topic", "description"},
		AllowedRoles:   []string{RoleDiscussionLeader, RoleSpeaker},
	},
	Break: {
		Tag:            Break,
		DisplayName:    "Break",
		RequiredFields: []string{"break_title"},
		OptionalFields: []string{"description"},
		AllowedRoles:   nil,
	},
	Other: {
		Tag:         Other,
		DisplayName: "Other",
		RequiredFields: []string{"title"},
		OptionalFields: []string{"topic", "description"},
		AllowedRoles: []string{
			RoleSpeaker, RoleOrator, RolePresenter, RoleWorkshopLead,
			RoleModerator, RoleDiscussionLeader, RoleChairperson, RoleIntroducer,
		},
	},
}

// Lookup returns the configuration for the given tag.
func Lookup(tag string) (Config, error) {
	cfg, ok := catalog[tag]
	if !ok {
		return Config{}, &UnknownTypeError{Tag: tag}
	}
	return cloneConfig(cfg), nil
}

// Tags returns every catalog tag in lexical order.
func Tags() []string {
	tags := make([]string, 0, len(catalog))
	for tag := range catalog {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// RequiredFields returns the fields a submission of this type must provide.
func RequiredFields(tag string) ([]string, error) {
	cfg, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	return cfg.RequiredFields, nil
}

// OptionalFields returns the fields a submission of this type may provide.
func OptionalFields(tag string) ([]string, error) {
	cfg, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	return cfg.OptionalFields, nil
}

// AllowedRoles returns the participant roles the type permits.
func AllowedRoles(tag string) ([]string, error) {
	cfg, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	return cfg.AllowedRoles, nil
}

// RoleAllowed reports whether the type permits the given participant role.
func RoleAllowed(tag, role string) (bool, error) {
	cfg, err := Lookup(tag)
	if err != nil {
		return false, err
	}
	for _, allowed := range cfg.AllowedRoles {
		if allowed == role {
			return true, nil
		}
	}
	return false, nil
}

// MissingFields returns the required fields absent or blank in the submitted
// field map. Optional and unknown fields pass through untouched.
func MissingFields(tag string, fields map[string]string) ([]string, error) {
	cfg, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	missing := make([]string, 0)
	for _, field := range cfg.RequiredFields {
		if strings.TrimSpace(fields[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.RequiredFields = append([]string(nil), cfg.RequiredFields...)
	out.OptionalFields = append([]string(nil), cfg.OptionalFields...)
	out.AllowedRoles = append([]string(nil), cfg.AllowedRoles...)
	return out
}
