package transactions

import "strings"

// Classification heuristics for brokerage action text. Kept free of any file
// or parsing concerns so the substring rules are unit-testable on their own.

// buyPrefixes and friends match the start of the uppercased action text.
// Substring fallbacks catch exports that bury the verb mid-sentence.
var (
	buyPrefixes  = []string{"YOU BOUGHT", "BOUGHT", "BUY", "PURCHASE"}
	sellPrefixes = []string{"YOU SOLD", "SOLD", "SELL"}

	transferInMarkers  = []string{"TRANSFERRED IN", "TRANSFER IN", "TRANSFER OF ASSETS IN", "RECEIVED FROM"}
	transferOutMarkers = []string{"TRANSFERRED OUT", "TRANSFER OUT", "TRANSFER OF ASSETS OUT", "DELIVERED TO"}

	reinvestMarkers = []string{"REINVESTMENT", "DIVIDEND REINVEST"}
)

// Classify maps free-text action strings onto share-moving transaction kinds.
// Dividend reinvestments classify as BUY; the normalizer separately rejects
// reinvestments into cash-sweep vehicles, which hold no equity shares.
func Classify(rawAction string) Action {
	action := strings.ToUpper(strings.TrimSpace(rawAction))
	if action == "" {
		return ActionIgnore
	}

	for _, m := range transferInMarkers {
		if strings.Contains(action, m) {
			return ActionTransferIn
		}
	}
	for _, m := range transferOutMarkers {
		if strings.Contains(action, m) {
			return ActionTransferOut
		}
	}

	for _, m := range reinvestMarkers {
		if strings.Contains(action, m) {
			return ActionBuy
		}
	}

	for _, p := range buyPrefixes {
		if strings.HasPrefix(action, p) {
			return ActionBuy
		}
	}
	for _, p := range sellPrefixes {
		if strings.HasPrefix(action, p) {
			return ActionSell
		}
	}

	return ActionIgnore
}
