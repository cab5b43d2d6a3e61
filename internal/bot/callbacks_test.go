package bot

import (
	"errors"
	"testing"

	"github.com/m3rciful/notifybot/internal/domain"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		unique, payload string
		want            Callback
		ok              bool
	}{
		{"subscribe_all", "", Callback{Action: ActionSubscribeAll}, true},
		{"change_status_resolved", "12", Callback{Action: ActionTicketResolve, TicketID: 12}, true},
		{"change_status_inprogress", " 3 ", Callback{Action: ActionTicketProgress, TicketID: 3}, true},
		{"change_status_resolved", "", Callback{}, false},
		{"change_status_resolved", "-1", Callback{}, false},
		{"change_status_resolved", "abc", Callback{}, false},
		{"back_main", "x", Callback{}, false},
		{"launch_rockets", "", Callback{}, false},
	}
	for _, tt := range tests {
		got, err := ParseCallback(tt.unique, tt.payload)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("ParseCallback(%q, %q) = %+v, %v", tt.unique, tt.payload, got, err)
			}
			continue
		}
		if !errors.Is(err, domain.ErrInvalidCallback) {
			t.Errorf("ParseCallback(%q, %q) err = %v, want ErrInvalidCallback", tt.unique, tt.payload, err)
		}
	}
}

func TestCallbackButtonRoundTrip(t *testing.T) {
	cb := Callback{Action: ActionTicketProgress, TicketID: 77}
	btn := cb.Button("In Progress")
	got, err := ParseCallback(btn.Unique, btn.Data)
	if err != nil || got != cb {
		t.Fatalf("round trip = %+v, %v", got, err)
	}
}
