package intel

import "regexp"

// Kind is a category of intelligence extracted from a scammer message.
type Kind string

const (
	KindPaymentID   Kind = "upi"
	KindPhoneNumber Kind = "phone"
	KindBankAccount Kind = "bank"
	KindLink        Kind = "links"
)

// Kinds lists every extraction category in a stable order.
var Kinds = []Kind{KindPaymentID, KindPhoneNumber, KindBankAccount, KindLink}

// Batch maps each kind to the raw matches found in a single message.
// Matches may repeat and a single token can surface under more than one
// kind (a 10 digit number is both a phone number and a bank account by
// these rules); the ledger dedups per kind on merge.
type Batch map[Kind][]string

var patterns = map[Kind]*regexp.Regexp{
	KindPaymentID:   regexp.MustCompile(`[a-zA-Z0-9._-]{2,}@[a-zA-Z]{2,}`),
	KindPhoneNumber: regexp.MustCompile(`\b\d{10}\b`),
	KindBankAccount: regexp.MustCompile(`\b\d{9,18}\b`),
	KindLink:        regexp.MustCompile(`https?://[^\s]+`),
}

// Extract pulls every candidate entity out of a raw message. It never
// fails; text with no matches yields empty slices for every kind.
func Extract(text string) Batch {
	batch := make(Batch, len(Kinds))
	for _, kind := range Kinds {
		batch[kind] = patterns[kind].FindAllString(text, -1)
	}
	return batch
}

var locationSignal = regexp.MustCompile(`(?i)\b(address|branch|pin ?code|locality|landmark|street|sector|colony|near the)\b`)

// HasLocationSignal reports whether a message carries an address or
// location hint. Locations are free text, so they are tracked as a
// signal rather than an entity set.
func HasLocationSignal(text string) bool {
	return locationSignal.MatchString(text)
}
