package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/decoy/internal/intel"
	"github.com/mohammad-safakhou/decoy/internal/ledger"
)

func sampleSnapshot() ledger.Snapshot {
	return ledger.Snapshot{
		SessionID: "sess-42",
		Entities: map[intel.Kind][]string{
			intel.KindPaymentID:   {"fraud@okaxis"},
			intel.KindPhoneNumber: {"9876543210"},
			intel.KindBankAccount: {"123456789012"},
			intel.KindLink:        {"https://bit.ly/fake-bank"},
		},
		TurnCount:        3,
		HasCriticalIntel: true,
		ShouldEscalate:   true,
	}
}

func TestNewPayload(t *testing.T) {
	t.Parallel()
	p := NewPayload(sampleSnapshot())
	if p.SessionID != "sess-42" || !p.ScamDetected || p.TotalMessagesExchanged != 3 {
		t.Fatalf("payload header wrong: %+v", p)
	}
	if len(p.ExtractedIntelligence.UPIIDs) != 1 || p.ExtractedIntelligence.UPIIDs[0] != "fraud@okaxis" {
		t.Fatalf("upi ids = %v", p.ExtractedIntelligence.UPIIDs)
	}
	if len(p.ExtractedIntelligence.SuspiciousKeywords) == 0 {
		t.Fatal("suspicious keywords missing")
	}
}

func TestDispatchDeliversPayload(t *testing.T) {
	t.Parallel()
	received := make(chan Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- p
	}))
	defer srv.Close()

	rep := New(srv.URL, 2*time.Second, nil)
	rep.Dispatch(sampleSnapshot())

	select {
	case p := <-received:
		if p.SessionID != "sess-42" {
			t.Fatalf("sessionId = %q", p.SessionID)
		}
		if p.ExtractedIntelligence.PhishingLinks[0] != "https://bit.ly/fake-bank" {
			t.Fatalf("links = %v", p.ExtractedIntelligence.PhishingLinks)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("report never arrived")
	}
}

func TestDispatchDropsFailures(t *testing.T) {
	t.Parallel()
	attempts := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts <- struct{}{}
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	rep := New(srv.URL, 2*time.Second, nil)
	rep.Dispatch(sampleSnapshot())

	select {
	case <-attempts:
	case <-time.After(3 * time.Second):
		t.Fatal("delivery attempt never happened")
	}
	// No retry: give a failed delivery a moment to (incorrectly) retry.
	select {
	case <-attempts:
		t.Fatal("failed delivery was retried")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPolicyValid(t *testing.T) {
	t.Parallel()
	if !PolicyOnce.Valid() || !PolicyEveryTurn.Valid() {
		t.Fatal("known policies must validate")
	}
	if Policy("sometimes").Valid() {
		t.Fatal("unknown policy must not validate")
	}
}
