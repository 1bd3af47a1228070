package retrieval

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced", "Sure!\n```json\n[\"*.cs\"]\n```\nanything else", `["*.cs"]`},
		{"fenced crlf", "```json\r\n{\"a\": 1}\r\n```", `{"a": 1}`},
		{"first block wins", "```json\n[1]\n```\n```json\n[2]\n```", "[1]"},
		{"unlabelled fence is raw", "```\n[1]\n```", "```\n[1]\n```"},
		{"raw", ` ["*.cs"] `, ` ["*.cs"] `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseArray(t *testing.T) {
	arr, err := ParseArray("```json\n[\"*controller.cs\", \"*service.cs\"]\n```")
	if err != nil || len(arr) != 2 {
		t.Fatalf("ParseArray = %v, %v", arr, err)
	}
	if _, err := ParseArray(`{"a": 1}`); err == nil {
		t.Error("object should not parse as array")
	}
	if _, err := ParseArray("no json here"); err == nil {
		t.Error("text should not parse")
	}
}

func TestParseObject(t *testing.T) {
	obj, err := ParseObject(` {"bucket": "DTO"} `)
	if err != nil || obj["bucket"] != "DTO" {
		t.Fatalf("ParseObject = %v, %v", obj, err)
	}
	for _, in := range []string{`[1]`, `null`, `"s"`, `{`} {
		if _, err := ParseObject(in); err == nil {
			t.Errorf("ParseObject(%q) should fail", in)
		}
	}
}
