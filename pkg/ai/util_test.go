package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type topic struct {
		Name     string `json:"name"`
		Category string `json:"category,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  topic
	}{
		{
			name:  "valid json object",
			input: `{"name":"deadline"}`,
			want:  topic{Name: "deadline"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'deadline'}`,
			want:  topic{Name: "deadline"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"deadline",}`,
			want:  topic{Name: "deadline"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"deadline`,
			want:  topic{Name: "deadline"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'deadline'}"`,
			want:  topic{Name: "deadline"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"deadline\"\n}\n",
			want:  topic{Name: "deadline"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "name": "deadline" }`,
			want:  topic{Name: "deadline"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got topic
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Category != tc.want.Category {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type entity struct {
		Value string `json:"value"`
		Type  string `json:"type,omitempty"`
	}

	input := `[{value:'a@b.com'},{value:'$100',}]`
	var got []entity
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Value != "a@b.com" || got[1].Value != "$100" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two entities", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type entity struct {
		Value string `json:"value"`
	}

	var got entity
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_StringifiedPayloads(t *testing.T) {
	type topic struct {
		Name     string   `json:"name"`
		Category string   `json:"category"`
		Keywords []string `json:"keywords"`
	}

	tests := []struct {
		name  string
		input string
		want  topic
	}{
		{
			name:  "simple stringified",
			input: `"{ \"name\": \"sprint planning\", \"category\": \"meeting\", \"keywords\": [ \"agenda\", \"schedule\" ] }"`,
			want:  topic{Name: "sprint planning", Category: "meeting", Keywords: []string{"agenda", "schedule"}},
		},
		{
			name:  "stringified with newlines",
			input: `"{\n  \"name\": \"sprint planning\",\n  \"category\": \"meeting\",\n  \"keywords\": [\"agenda\", \"schedule\", \"follow-up items (e.g., action points, owners)\"]\n  }\n"`,
			want:  topic{Name: "sprint planning", Category: "meeting", Keywords: []string{"agenda", "schedule", "follow-up items (e.g., action points, owners)"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got topic
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Category != tc.want.Category {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
			if len(got.Keywords) != len(tc.want.Keywords) {
				t.Fatalf("UnmarshalFlexible() keywords length got = %d, want %d", len(got.Keywords), len(tc.want.Keywords))
			}
			for i := range got.Keywords {
				if got.Keywords[i] != tc.want.Keywords[i] {
					t.Fatalf("UnmarshalFlexible() keywords[%d] = %q, want %q", i, got.Keywords[i], tc.want.Keywords[i])
				}
			}
		})
	}
}
