package state

import "testing"

func TestParseDocument_NullAndEmpty(t *testing.T) {
	doc, err := ParseDocument([]byte("null"))
	if err != nil {
		t.Fatalf("parse null: %v", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Fatalf("expected empty document for null input")
	}

	doc, err = ParseDocument([]byte(`{"42":{"adminIDs":[1],"targetIDs":[],"message":"hi"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := doc.Guild(42)
	if cfg == nil || cfg.Message != "hi" || !cfg.HasAdmin(1) {
		t.Fatalf("unexpected decode result: %+v", cfg)
	}
}

func TestValidateDocument(t *testing.T) {
	doc := Document{
		"42":  {AdminIDs: []UserID{1, 1}, TargetIDs: []UserID{0}},
		"abc": {},
		"99":  nil,
		"100": {AdminIDs: []UserID{2}, TargetIDs: []UserID{3}},
	}
	problems := ValidateDocument(doc)
	want := map[string]bool{
		`guild 42: adminIDs contains 1 more than once`: false,
		`guild 42: targetIDs contains a zero user id`:  false,
		`guild key "abc" is not a decimal id`:          false,
		`guild 99: record is null`:                     false,
	}
	for _, p := range problems {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for msg, seen := range want {
		if !seen {
			t.Fatalf("missing problem %q in %v", msg, problems)
		}
	}
	if clean := ValidateDocument(Document{"100": {AdminIDs: []UserID{2}}}); len(clean) != 0 {
		t.Fatalf("expected no problems, got %v", clean)
	}
}

func TestRemoveUser(t *testing.T) {
	ids := []UserID{1, 2, 3}
	ids, ok := RemoveUser(ids, 2)
	if !ok || len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("remove: got %v ok=%v", ids, ok)
	}
	ids, ok = RemoveUser(ids, 9)
	if ok || len(ids) != 2 {
		t.Fatalf("remove absent: got %v ok=%v", ids, ok)
	}
}

func TestMention(t *testing.T) {
	if got := UserID(7).Mention(); got != "<@7>" {
		t.Fatalf("mention: got %q", got)
	}
}
