package pagination

import (
	"encoding/json"
	"testing"
)

func TestNotification_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantReason string
		wantErr    bool
	}{
		{"known reason", `{"id":"1","reason":"mention","subject":{"title":"Fix it"}}`, "mention", false},
		{"unknown reason", `{"reason":"ci_activity"}`, "ci_activity", false},
		{"empty reason", `{"reason":""}`, "", false},
		{"missing reason", `{"id":"1"}`, "", true},
		{"null reason", `{"reason":null}`, "", true},
		{"null entry", `null`, "", true},
		{"reason not a string", `{"reason":7}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Notification
			err := json.Unmarshal([]byte(tt.input), &n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && n.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", n.Reason, tt.wantReason)
			}
		})
	}

	var n Notification
	if err := json.Unmarshal([]byte(`{"id":"42","reason":"author","subject":{"title":"Bump"}}`), &n); err != nil {
		t.Fatal(err)
	}
	if n.ID != "42" || n.Subject.Title != "Bump" {
		t.Errorf("other fields not decoded: %+v", n)
	}
}
