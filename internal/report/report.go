package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/decoy/internal/intel"
	"github.com/mohammad-safakhou/decoy/internal/ledger"
	"github.com/mohammad-safakhou/decoy/internal/telemetry"
)

// Policy decides how often an escalating session is reported.
type Policy string

const (
	// PolicyOnce delivers at most one report per session, gated on the
	// ledger's reported flag.
	PolicyOnce Policy = "once"
	// PolicyEveryTurn re-delivers on every qualifying turn.
	PolicyEveryTurn Policy = "every-turn"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool { return p == PolicyOnce || p == PolicyEveryTurn }

// suspiciousKeywords is the static keyword list attached to every
// report payload.
var suspiciousKeywords = []string{"blocked", "urgent", "verify"}

// Intelligence is the entity section of a report payload. Field names
// follow the collector's schema.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Payload is what the external collector receives.
type Payload struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  Intelligence `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
}

// NewPayload builds a report payload from a session snapshot.
func NewPayload(snap ledger.Snapshot) Payload {
	return Payload{
		SessionID:              snap.SessionID,
		ScamDetected:           true,
		TotalMessagesExchanged: snap.TurnCount,
		ExtractedIntelligence: Intelligence{
			BankAccounts:       snap.Entities[intel.KindBankAccount],
			UPIIDs:             snap.Entities[intel.KindPaymentID],
			PhishingLinks:      snap.Entities[intel.KindLink],
			PhoneNumbers:       snap.Entities[intel.KindPhoneNumber],
			SuspiciousKeywords: suspiciousKeywords,
		},
		AgentNotes: "Scammer engaged. Intelligence extracted via decoy persona.",
	}
}

// Reporter delivers intelligence reports to the external collector.
// Deliveries are fire-and-forget: never retried, never surfaced to the
// conversation flow.
type Reporter struct {
	callbackURL string
	httpClient  *http.Client
	logger      *log.Logger
	metrics     *telemetry.Metrics
}

// New builds a reporter. Metrics may be nil.
func New(callbackURL string, timeout time.Duration, metrics *telemetry.Metrics) *Reporter {
	return &Reporter{
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log.New(log.Writer(), "[REPORT] ", log.LstdFlags),
		metrics:     metrics,
	}
}

// Dispatch hands a snapshot to the collector on a background goroutine
// and returns immediately.
func (r *Reporter) Dispatch(snap ledger.Snapshot) {
	go r.deliver(snap)
}

func (r *Reporter) deliver(snap ledger.Snapshot) {
	deliveryID := uuid.NewString()
	if err := r.send(context.Background(), NewPayload(snap)); err != nil {
		r.logger.Printf("delivery %s for session %s dropped: %v", deliveryID, snap.SessionID, err)
		if r.metrics != nil {
			r.metrics.ReportsFailed.Inc()
		}
		return
	}
	r.logger.Printf("delivery %s for session %s sent (%d turns)", deliveryID, snap.SessionID, snap.TurnCount)
	if r.metrics != nil {
		r.metrics.ReportsDelivered.Inc()
	}
}

func (r *Reporter) send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}
