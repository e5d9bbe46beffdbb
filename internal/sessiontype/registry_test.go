package sessiontype

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	t.Run("returns config for every catalog tag", func(t *testing.T) {
		tags := Tags()
		if len(tags) != 9 {
			t.Fatalf("expected 9 catalog tags, got %d", len(tags))
		}
		for _, tag := range tags {
			cfg, err := Lookup(tag)
			if err != nil {
				t.Fatalf("Lookup(%q) returned error: %v", tag, err)
			}
			if cfg.Tag != tag {
				t.Errorf("Lookup(%q) returned config for %q", tag, cfg.Tag)
			}
			if cfg.DisplayName == "" {
				t.Errorf("Lookup(%q) has empty display name", tag)
			}
		}
	})

	t.Run("rejects unknown tags", func(t *testing.T) {
		_, err := Lookup("keynote")
		var unknownErr *UnknownTypeError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("expected UnknownTypeError, got %v", err)
		}
		if unknownErr.Tag != "keynote" {
			t.Errorf("expected tag keynote in error, got %q", unknownErr.Tag)
		}
	})

	t.Run("never defaults an empty tag", func(t *testing.T) {
		if _, err := Lookup(""); err == nil {
			t.Fatal("expected error for empty tag")
		}
	})

	t.Run("returned config is a copy", func(t *testing.T) {
		first, _ := Lookup(Panel)
		first.RequiredFields[0] = "mutated"
		second, _ := Lookup(Panel)
		if second.RequiredFields[0] == "mutated" {
			t.Fatal("catalog entry was mutated through a Lookup result")
		}
	})
}

func TestFieldProjections(t *testing.T) {
	t.Run("required and optional sets are disjoint", func(t *testing.T) {
		for _, tag := range Tags() {
			required, err := RequiredFields(tag)
			if err != nil {
				t.Fatalf("RequiredFields(%q): %v", tag, err)
			}
			optional, err := OptionalFields(tag)
			if err != nil {
				t.Fatalf("OptionalFields(%q): %v", tag, err)
			}
			seen := make(map[string]struct{}, len(required))
			for _, field := range required {
				seen[field] = struct{}{}
			}
			for _, field := range optional {
				if _, ok := seen[field]; ok {
					t.Errorf("tag %q lists %q as both required and optional", tag, field)
				}
			}
		}
	})

	t.Run("panel requires panelists", func(t *testing.T) {
		required, err := RequiredFields(Panel)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, field := range required {
			if field == "panelist_ids" {
				found = true
			}
		}
		if !found {
			t.Fatalf("panelist_ids missing from panel required fields: %v", required)
		}
	})
}

func TestMissingFields(t *testing.T) {
	t.Run("reports empty required fields", func(t *testing.T) {
		missing, err := MissingFields(Panel, map[string]string{
			"title":        "Ethics of AI",
			"panelist_ids": "",
			"moderator_id": "p-1",
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(missing) != 1 || missing[0] != "panelist_ids" {
			t.Fatalf("expected [panelist_ids], got %v", missing)
		}
	})

	t.Run("whitespace only counts as missing", func(t *testing.T) {
		missing, err := MissingFields(Lecture, map[string]string{
			"title":      "  ",
			"speaker_id": "p-2",
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(missing) != 1 || missing[0] != "title" {
			t.Fatalf("expected [title], got %v", missing)
		}
	})

	t.Run("unknown fields pass through", func(t *testing.T) {
		missing, err := MissingFields(Other, map[string]string{
			"title":       "Hallway track",
			"unlisted":    "kept",
			"description": "",
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(missing) != 0 {
			t.Fatalf("expected no missing fields, got %v", missing)
		}
	})

	t.Run("unknown type propagates", func(t *testing.T) {
		_, err := MissingFields("plenary", nil)
		var unknownErr *UnknownTypeError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("expected UnknownTypeError, got %v", err)
		}
	})
}

func TestRoleAllowed(t *testing.T) {
	cases := []struct {
		tag     string
		role    string
		allowed bool
	}{
		{Lecture, RoleSpeaker, true},
		{Lecture, RoleModerator, false},
		{Panel, RolePresenter, true},
		{Panel, RoleModerator, true},
		{Workshop, RoleWorkshopLead, true},
		{Break, RoleSpeaker, false},
		{Other, RoleIntroducer, true},
	}
	for _, tc := range cases {
		allowed, err := RoleAllowed(tc.tag, tc.role)
		if err != nil {
			t.Fatalf("RoleAllowed(%q, %q): %v", tc.tag, tc.role, err)
		}
		if allowed != tc.allowed {
			t.Errorf("RoleAllowed(%q, %q) = %v, want %v", tc.tag, tc.role, allowed, tc.allowed)
		}
	}
}
