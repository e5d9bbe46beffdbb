package program

import (
	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/sessiontype"
)

// RoleBuckets groups a session's participants into the three display columns.
type RoleBuckets struct {
	Speakers     []string
	Moderators   []string
	Chairpersons []string
}

// bucketByRole is the fixed role→bucket table. Roles outside it do not appear
// in any bucket; dropping them is intentional and covered by tests.
var bucketByRole = map[string]string{
	sessiontype.RoleSpeaker:          "speakers",
	sessiontype.RoleOrator:           "speakers",
	sessiontype.RolePresenter:        "speakers",
	sessiontype.RoleWorkshopLead:     "speakers",
	sessiontype.RoleModerator:        "moderators",
	sessiontype.RoleDiscussionLeader: "moderators",
	sessiontype.RoleChairperson:      "chairpersons",
	sessiontype.RoleIntroducer:       "chairpersons",
}

// ResolveRoles buckets participants by role category, resolving person names
// through the supplied lookup. A participant whose person record is gone
// still contributes a placeholder entry so bucket counts stay faithful to the
// participant records.
func ResolveRoles(participants []persistence.SessionParticipant, persons map[string]persistence.Person) RoleBuckets {
	buckets := RoleBuckets{}
	for _, participant := range participants {
		bucket, ok := bucketByRole[participant.Role]
		if !ok {
			continue
		}

		name := ""
		if person, found := persons[participant.PersonID]; found {
			name = person.Name
		}

		switch bucket {
		case "speakers":
			if name == "" {
				name = "Unknown Speaker"
			}
			buckets.Speakers = append(buckets.Speakers, name)
		case "moderators":
			if name == "" {
				name = "Unknown Moderator"
			}
			buckets.Moderators = append(buckets.Moderators, name)
		case "chairpersons":
			if name == "" {
				name = "Unknown Chairperson"
			}
			buckets.Chairpersons = append(buckets.Chairpersons, name)
		}
	}
	return buckets
}
