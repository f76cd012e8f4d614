package server

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/decoy/internal/dialogue"
	"github.com/mohammad-safakhou/decoy/internal/intel"
	"github.com/mohammad-safakhou/decoy/internal/ledger"
	"github.com/mohammad-safakhou/decoy/internal/persona"
	"github.com/mohammad-safakhou/decoy/internal/report"
	"github.com/mohammad-safakhou/decoy/internal/telemetry"
)

// HoneypotHandler serves the conversational endpoint: ingest the
// message, pick the next objective, get a persona reply, and hand off
// a report when the session qualifies.
type HoneypotHandler struct {
	Ledger        ledger.Store
	Dialogue      dialogue.Provider
	Reporter      *report.Reporter
	Policy        report.Policy
	Metrics       *telemetry.Metrics
	PersonaScript string
	Logger        *log.Logger
}

func (h *HoneypotHandler) Register(g *echo.Group) {
	if h.Logger == nil {
		h.Logger = log.New(log.Writer(), "[HONEYPOT] ", log.LstdFlags)
	}
	g.POST("/scam-detect", h.scamDetect)
}

func (h *HoneypotHandler) scamDetect(c echo.Context) error {
	var req EngageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId is required")
	}
	if req.Message.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message.text is required")
	}

	ctx := c.Request().Context()
	h.observeExtraction(req.Message.Text)

	snap, err := h.Ledger.Ingest(ctx, req.SessionID, req.Message.Text)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	reply := h.generateReply(c, snap, req)
	h.maybeReport(c, snap)

	return c.JSON(http.StatusOK, EngageResponse{
		Status: "success",
		Reply:  reply,
		Intelligence: IntelligenceView{
			UPI:   snap.Entities[intel.KindPaymentID],
			Phone: snap.Entities[intel.KindPhoneNumber],
			Bank:  snap.Entities[intel.KindBankAccount],
			Links: snap.Entities[intel.KindLink],
		},
	})
}

// generateReply calls the dialogue service and substitutes a canned
// fallback on any failure; the conversation never sees a hard error.
func (h *HoneypotHandler) generateReply(c echo.Context, snap ledger.Snapshot, req EngageRequest) string {
	objective := persona.SelectObjective(snap)
	prompt := persona.Prompt{Script: h.PersonaScript, Snapshot: snap, Objective: objective}

	history := make([]dialogue.Turn, 0, len(req.ConversationHistory))
	for _, turn := range req.ConversationHistory {
		role := "assistant"
		if turn.Sender == "scammer" {
			role = "user"
		}
		history = append(history, dialogue.Turn{Role: role, Content: turn.Text})
	}

	start := time.Now()
	reply, err := h.Dialogue.Reply(c.Request().Context(), prompt.System(), history, req.Message.Text)
	if h.Metrics != nil {
		h.Metrics.DialogueLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.Logger.Printf("dialogue failed for session %s (objective %s): %v", snap.SessionID, objective, err)
		if h.Metrics != nil {
			h.Metrics.DialogueFallbacks.Inc()
		}
		return dialogue.FallbackFor(err)
	}
	return reply
}

// maybeReport hands the snapshot to the reporting collaborator when
// the session qualifies, honoring the configured delivery policy.
func (h *HoneypotHandler) maybeReport(c echo.Context, snap ledger.Snapshot) {
	if !snap.ShouldEscalate {
		return
	}
	if h.Metrics != nil {
		h.Metrics.Escalations.Inc()
	}
	if h.Reporter == nil {
		return
	}
	switch h.Policy {
	case report.PolicyEveryTurn:
		h.Reporter.Dispatch(snap)
	default: // PolicyOnce
		transitioned, err := h.Ledger.MarkReported(c.Request().Context(), snap.SessionID)
		if err != nil {
			h.Logger.Printf("mark reported for session %s: %v", snap.SessionID, err)
			return
		}
		if transitioned {
			h.Reporter.Dispatch(snap)
		}
	}
}

func (h *HoneypotHandler) observeExtraction(text string) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.MessagesIngested.Inc()
	for kind, matches := range intel.Extract(text) {
		if len(matches) > 0 {
			h.Metrics.EntitiesExtracted.WithLabelValues(string(kind)).Add(float64(len(matches)))
		}
	}
}
