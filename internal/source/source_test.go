package source

import "testing"

func TestDecode(t *testing.T) {
	data := []byte(`{
		"kind": "30C9",
		"verb": " I",
		"source_id": "04:056057",
		"destination_id": "01:123456",
		"payload": {"temperature": 21.3}
	}`)

	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if ev.Kind != "30C9" {
		t.Errorf("Kind = %q, want %q", ev.Kind, "30C9")
	}
	if ev.Verb != " I" {
		t.Errorf("Verb = %q, want %q", ev.Verb, " I")
	}
	if ev.SourceID != "04:056057" {
		t.Errorf("SourceID = %q", ev.SourceID)
	}
	if ev.ID == "" {
		t.Error("Decode should assign a correlation id")
	}

	fields, ok := ev.Fields()
	if !ok {
		t.Fatal("payload should decode as fields")
	}
	if v, _ := fields.Float("temperature"); v != 21.3 {
		t.Errorf("temperature = %v, want 21.3", v)
	}
}

func TestDecode_PreservesExplicitID(t *testing.T) {
	ev, err := Decode([]byte(`{"id": "upstream-7", "kind": "0004"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if ev.ID != "upstream-7" {
		t.Errorf("ID = %q, want %q", ev.ID, "upstream-7")
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, err := Decode([]byte("{nope")); err == nil {
		t.Error("expected error for malformed message")
	}
}
