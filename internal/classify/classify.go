// Package classify maps raw transaction records to semantic labels and
// category tags, and assigns the movement window each category allows.
//
// The rules are an explicit ordered list: first match wins, and the order is
// part of the contract. Merchant tables are ordered slices for the same
// reason; a map would randomize which provider matches first.
package classify

import (
	"regexp"
	"strings"

	"paycal/internal/core"
	"paycal/internal/dates"
)

// Input is one raw record as seen by the classifier.
type Input struct {
	Name     string
	Merchant string
	Category core.SourceCategory
}

type merchantRule struct {
	match    string
	label    string
	category core.Category
}

// utilityProviders maps merchant substrings to utility/ISP labels.
var utilityProviders = []merchantRule{
	{"comcast", "Internet", core.CategoryInternet},
	{"xfinity", "Internet", core.CategoryInternet},
	{"at&t", "Internet", core.CategoryInternet},
	{"verizon fios", "Internet", core.CategoryInternet},
	{"spectrum", "Internet", core.CategoryInternet},
	{"sdge", "Utilities", core.CategoryUtilities},
	{"pg&e", "Utilities", core.CategoryUtilities},
	{"pge", "Utilities", core.CategoryUtilities},
	{"coned", "Utilities", core.CategoryUtilities},
}

// subscriptionServices maps merchant substrings to friendly service titles.
var subscriptionServices = []struct {
	match string
	title string
}{
	{"spotify", "Spotify"},
	{"netflix", "Netflix"},
	{"icloud", "iCloud"},
	{"apple icloud", "iCloud"},
	{"apple.com/bill", "Apple Services"},
	{"hulu", "Hulu"},
	{"youtube", "YouTube"},
	{"amazon prime", "Amazon Prime"},
	{"prime video", "Amazon Prime Video"},
}

var rentPattern = regexp.MustCompile(`(?i)\b(rent|mortgage)\b`)

// Classify derives (label, category) for one raw record. It is a pure
// function and never fails; records the caller cannot use are its problem.
//
// Decision order, first match wins:
//  1. income category
//  2. credit-card-payment transfer
//  3. rent transfer or rent/mortgage name match
//  4. known utility/ISP merchant
//  5. utilities-prefixed category code
//  6. subscription category, with friendly title when the merchant is known
//  7. known subscription merchant without category support
//  8. fallback to the raw name
func Classify(in Input) (string, core.Category) {
	name := strings.TrimSpace(in.Name)
	merchant := strings.TrimSpace(in.Merchant)
	primary := strings.ToUpper(in.Category.Primary)
	detailed := strings.ToUpper(in.Category.Detailed)

	if primary == "INCOME" || strings.Contains(detailed, "INCOME") {
		return "Paycheck", core.CategoryIncome
	}
	if strings.Contains(detailed, "TRANSFER_OUT_CREDIT_CARD_PAYMENT") {
		return "Card Payment", core.CategoryCardPayment
	}
	if strings.Contains(detailed, "TRANSFER_OUT_RENT") ||
		rentPattern.MatchString(name) || rentPattern.MatchString(merchant) {
		return "Rent", core.CategoryRent
	}

	nameLower := strings.ToLower(name)
	merchantLower := strings.ToLower(merchant)

	for _, rule := range utilityProviders {
		if strings.Contains(merchantLower, rule.match) || strings.Contains(nameLower, rule.match) {
			return rule.label, rule.category
		}
	}

	if strings.HasPrefix(detailed, "UTILITIES_") {
		if strings.Contains(detailed, "INTERNET") {
			return "Internet", core.CategoryInternet
		}
		return "Utilities", core.CategoryUtilities
	}

	if strings.HasSuffix(detailed, "_SUBSCRIPTIONS") || strings.Contains(detailed, "SUBSCRIPTION") {
		title := "Recurring"
		if t, ok := subscriptionTitle(merchantLower, nameLower); ok {
			title = t
		}
		return "Subscription: " + title, core.CategorySubscription
	}

	if t, ok := subscriptionTitle(merchantLower, nameLower); ok {
		return "Subscription: " + t, core.CategorySubscription
	}

	switch {
	case name != "":
		return name, core.CategoryOther
	case merchant != "":
		return merchant, core.CategoryOther
	default:
		return "Payment", core.CategoryOther
	}
}

func subscriptionTitle(merchantLower, nameLower string) (string, bool) {
	for _, svc := range subscriptionServices {
		if strings.Contains(merchantLower, svc.match) || strings.Contains(nameLower, svc.match) {
			return svc.title, true
		}
	}
	return "", false
}

// WindowFor computes the allowed target window for an outflow category,
// clamped to the anchor's month. Categories without scheduling slack get no
// window and are immovable by default.
func WindowFor(category core.Category, anchor core.Date) *core.Window {
	var startOffset, endOffset int
	switch category {
	case core.CategorySubscription:
		startOffset, endOffset = 3, 7
	case core.CategoryInternet:
		startOffset, endOffset = -2, 5
	case core.CategoryUtilities:
		startOffset, endOffset = -3, 5
	case core.CategoryCardPayment:
		startOffset, endOffset = -3, 3
	default:
		return nil
	}
	w := dates.ClampToMonth(anchor, anchor.AddDays(startOffset), anchor.AddDays(endOffset))
	return &w
}
