package persona

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/decoy/internal/intel"
	"github.com/mohammad-safakhou/decoy/internal/ledger"
)

// Objective is the single conversational goal pursued on the next turn.
// One thing at a time; asking for everything at once scares the target off.
type Objective string

const (
	ObjectivePaymentDetails Objective = "payment_details"
	ObjectivePhoneNumber    Objective = "phone_number"
	ObjectiveLocation       Objective = "location"
	ObjectiveStall          Objective = "stall"
)

// SelectObjective picks the next goal from what the session already
// knows. First matching rule wins.
func SelectObjective(snap ledger.Snapshot) Objective {
	hasPayment := len(snap.Entities[intel.KindPaymentID]) > 0 || len(snap.Entities[intel.KindBankAccount]) > 0
	hasPhone := len(snap.Entities[intel.KindPhoneNumber]) > 0
	switch {
	case !hasPayment:
		return ObjectivePaymentDetails
	case !hasPhone:
		return ObjectivePhoneNumber
	case !snap.LocationSeen:
		return ObjectiveLocation
	default:
		return ObjectiveStall
	}
}

// DefaultScript is the stock persona. Deployments can swap it out via
// configuration without touching the engine.
const DefaultScript = `You are Ramesh, a 68-year-old retired government school teacher living in Pune, India.
You are very worried because you received a message about your bank account being blocked.
You are not tech-savvy. You get confused by links, OTPs, and apps.
You want to solve this urgently but you are scared to make a mistake.

CORE BEHAVIOR:
1. Act helpless and confused: "Beta, I don't understand this link", "My spectacles are broken".
2. Bait the scammer: pretend you have a lot of money (pension + savings) but are struggling to transfer it.
3. Tone: polite, worried, uncle-ji style (uses words like 'Beta', 'Babu', 'Arey').
4. NEVER reveal you are an AI. Stay in character 100%.
5. Keep responses short (1-2 sentences) so the scammer engages more.`

var missions = map[Objective]string{
	ObjectivePaymentDetails: `Act panicked and ask for a direct bank account number or UPI ID so you can "transfer immediately". The app is not working.`,
	ObjectivePhoneNumber:    `Say your internet is slow and ask for their phone number so you can call or WhatsApp a screenshot.`,
	ObjectiveLocation:       `Say the app is failing and you are near the bank. Ask which branch this is and for the address so you can deposit cash directly.`,
	ObjectiveStall:          `You have everything you need. Just stall: "Okay going there now...", "Rickshaw is coming...", "Wait, my tea fell."`,
}

// Prompt is the assembled system instruction for the dialogue service.
type Prompt struct {
	Script    string
	Snapshot  ledger.Snapshot
	Objective Objective
}

// System renders the full system instruction: persona script, what the
// session already extracted, and the single mission for this turn.
func (p Prompt) System() string {
	script := p.Script
	if script == "" {
		script = DefaultScript
	}

	var b strings.Builder
	b.WriteString(script)
	b.WriteString("\n\n### CURRENT INTELLIGENCE (WHAT WE KNOW)\n")
	b.WriteString(memoryContext(p.Snapshot))
	b.WriteString("\n### INSTRUCTIONS: ANALYZE FIRST\n")
	b.WriteString("1. CHECK INTENT: is the message a scam attempt (asking for money, urgent, links) or normal conversation?\n")
	b.WriteString("2. IF NORMAL: drop the panicked victim act. Reply as a nice, polite grandpa. Weather, tea, blessings.\n")
	b.WriteString("3. IF SCAM: stay the helpless victim and pursue the mission below.\n")
	b.WriteString("\n### CURRENT MISSION\n")
	b.WriteString(missions[p.Objective])
	b.WriteString("\n\n### EXECUTION RULES\n")
	b.WriteString("- Ask for ONE thing at a time based on what is missing.\n")
	b.WriteString("- Use text-relevant excuses: cracked screen, small font, shaking fingers, confusing app.\n")
	b.WriteString("- Stick to digital issues (OTP not coming, server slow); never ask for photos of physical items.\n")
	return b.String()
}

func memoryContext(snap ledger.Snapshot) string {
	var b strings.Builder
	writeFirst := func(label string, vals []string) {
		if len(vals) > 0 {
			fmt.Fprintf(&b, "- WE HAVE %s: %s\n", label, vals[0])
		}
	}
	writeFirst("UPI ID", snap.Entities[intel.KindPaymentID])
	writeFirst("BANK ACCOUNT", snap.Entities[intel.KindBankAccount])
	writeFirst("PHONE NUMBER", snap.Entities[intel.KindPhoneNumber])
	if snap.LocationSeen {
		b.WriteString("- WE HAVE A LOCATION HINT\n")
	}
	if b.Len() == 0 {
		b.WriteString("- nothing yet\n")
	}
	return b.String()
}
