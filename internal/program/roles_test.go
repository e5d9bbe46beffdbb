package program

import (
	"testing"

	"github.com/example/conference-program/internal/persistence"
)

func participant(id, personID, role string) persistence.SessionParticipant {
	return persistence.SessionParticipant{ID: id, SessionID: "sess-1", PersonID: personID, Role: role}
}

func TestResolveRoles(t *testing.T) {
	persons := map[string]persistence.Person{
		"p1": {ID: "p1", Name: "Ada Lovelace"},
		"p2": {ID: "p2", Name: "Alan Turing"},
		"p3": {ID: "p3", Name: "Grace Hopper"},
	}

	t.Run("buckets by role category", func(t *testing.T) {
		buckets := ResolveRoles([]persistence.SessionParticipant{
			participant("a", "p1", "speaker"),
			participant("b", "p2", "moderator"),
			participant("c", "p3", "chairperson"),
		}, persons)

		if len(buckets.Speakers) != 1 || buckets.Speakers[0] != "Ada Lovelace" {
			t.Errorf("speakers = %v", buckets.Speakers)
		}
		if len(buckets.Moderators) != 1 || buckets.Moderators[0] != "Alan Turing" {
			t.Errorf("moderators = %v", buckets.Moderators)
		}
		if len(buckets.Chairpersons) != 1 || buckets.Chairpersons[0] != "Grace Hopper" {
			t.Errorf("chairpersons = %v", buckets.Chairpersons)
		}
	})

	t.Run("speaker-like roles share the speakers bucket", func(t *testing.T) {
		buckets := ResolveRoles([]persistence.SessionParticipant{
			participant("a", "p1", "orator"),
			participant("b", "p2", "presenter"),
			participant("c", "p3", "workshop_lead"),
		}, persons)
		if len(buckets.Speakers) != 3 {
			t.Fatalf("expected 3 speakers, got %v", buckets.Speakers)
		}
	})

	t.Run("introducer joins chairpersons, discussion leader joins moderators", func(t *testing.T) {
		buckets := ResolveRoles([]persistence.SessionParticipant{
			participant("a", "p1", "introducer"),
			participant("b", "p2", "discussion_leader"),
		}, persons)
		if len(buckets.Chairpersons) != 1 || len(buckets.Moderators) != 1 {
			t.Fatalf("unexpected buckets: %+v", buckets)
		}
	})

	t.Run("deleted person yields placeholder, never a dropped entry", func(t *testing.T) {
		buckets := ResolveRoles([]persistence.SessionParticipant{
			participant("a", "missing", "speaker"),
			participant("b", "missing", "moderator"),
			participant("c", "missing", "chairperson"),
		}, persons)

		total := len(buckets.Speakers) + len(buckets.Moderators) + len(buckets.Chairpersons)
		if total != 3 {
			t.Fatalf("resolution failure changed participant count: %d", total)
		}
		if buckets.Speakers[0] != "Unknown Speaker" {
			t.Errorf("speakers[0] = %q", buckets.Speakers[0])
		}
		if buckets.Moderators[0] != "Unknown Moderator" {
			t.Errorf("moderators[0] = %q", buckets.Moderators[0])
		}
		if buckets.Chairpersons[0] != "Unknown Chairperson" {
			t.Errorf("chairpersons[0] = %q", buckets.Chairpersons[0])
		}
	})

	t.Run("roles outside the table are dropped", func(t *testing.T) {
		buckets := ResolveRoles([]persistence.SessionParticipant{
			participant("a", "p1", "speaker"),
			participant("b", "p2", "catering"),
		}, persons)
		total := len(buckets.Speakers) + len(buckets.Moderators) + len(buckets.Chairpersons)
		if total != 1 {
			t.Fatalf("expected only mapped roles counted, got %d", total)
		}
	})

	t.Run("total count invariant", func(t *testing.T) {
		parts := []persistence.SessionParticipant{
			participant("a", "p1", "speaker"),
			participant("b", "p2", "orator"),
			participant("c", "missing", "moderator"),
			participant("d", "p3", "introducer"),
			participant("e", "p1", "unmapped_role"),
		}
		mapped := 0
		for _, p := range parts {
			if _, ok := bucketByRole[p.Role]; ok {
				mapped++
			}
		}
		buckets := ResolveRoles(parts, persons)
		total := len(buckets.Speakers) + len(buckets.Moderators) + len(buckets.Chairpersons)
		if total != mapped {
			t.Fatalf("bucket total %d != mapped participant count %d", total, mapped)
		}
	})

	t.Run("empty participants", func(t *testing.T) {
		buckets := ResolveRoles(nil, nil)
		if len(buckets.Speakers)+len(buckets.Moderators)+len(buckets.Chairpersons) != 0 {
			t.Fatal("expected empty buckets")
		}
	})
}
