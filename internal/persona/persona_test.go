package persona

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/decoy/internal/intel"
	"github.com/mohammad-safakhou/decoy/internal/ledger"
)

func snapWith(entities map[intel.Kind][]string, locationSeen bool) ledger.Snapshot {
	if entities == nil {
		entities = map[intel.Kind][]string{}
	}
	return ledger.Snapshot{SessionID: "s1", Entities: entities, LocationSeen: locationSeen}
}

func TestSelectObjective(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		snap ledger.Snapshot
		want Objective
	}{
		{
			name: "nothing known asks for payment details",
			snap: snapWith(nil, false),
			want: ObjectivePaymentDetails,
		},
		{
			name: "links alone do not count as payment details",
			snap: snapWith(map[intel.Kind][]string{intel.KindLink: {"https://bad.example"}}, false),
			want: ObjectivePaymentDetails,
		},
		{
			name: "payment known asks for phone",
			snap: snapWith(map[intel.Kind][]string{intel.KindPaymentID: {"x@ybl"}}, false),
			want: ObjectivePhoneNumber,
		},
		{
			name: "bank account counts as payment details",
			snap: snapWith(map[intel.Kind][]string{intel.KindBankAccount: {"123456789"}}, false),
			want: ObjectivePhoneNumber,
		},
		{
			name: "payment and phone known asks for location",
			snap: snapWith(map[intel.Kind][]string{
				intel.KindPaymentID:   {"x@ybl"},
				intel.KindPhoneNumber: {"9876543210"},
			}, false),
			want: ObjectiveLocation,
		},
		{
			name: "everything known stalls",
			snap: snapWith(map[intel.Kind][]string{
				intel.KindPaymentID:   {"x@ybl"},
				intel.KindPhoneNumber: {"9876543210"},
			}, true),
			want: ObjectiveStall,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectObjective(tt.snap); got != tt.want {
				t.Fatalf("SelectObjective = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptSystemIncludesKnownIntel(t *testing.T) {
	t.Parallel()
	snap := snapWith(map[intel.Kind][]string{
		intel.KindPaymentID:   {"fraud@okaxis"},
		intel.KindPhoneNumber: {"9876543210"},
	}, false)
	p := Prompt{Snapshot: snap, Objective: SelectObjective(snap)}
	sys := p.System()

	for _, want := range []string{
		"WE HAVE UPI ID: fraud@okaxis",
		"WE HAVE PHONE NUMBER: 9876543210",
		missions[ObjectiveLocation],
		"Ramesh",
	} {
		if !strings.Contains(sys, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, sys)
		}
	}
}

func TestPromptSystemCustomScript(t *testing.T) {
	t.Parallel()
	p := Prompt{Script: "You are Sita, a cautious shopkeeper.", Snapshot: snapWith(nil, false), Objective: ObjectivePaymentDetails}
	sys := p.System()
	if !strings.Contains(sys, "Sita") {
		t.Fatalf("custom script not used:\n%s", sys)
	}
	if strings.Contains(sys, "Ramesh") {
		t.Fatalf("default script leaked into custom prompt:\n%s", sys)
	}
	if !strings.Contains(sys, "- nothing yet") {
		t.Fatalf("empty memory context missing:\n%s", sys)
	}
}
