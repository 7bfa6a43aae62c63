package classify

import (
	"testing"

	"paycal/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		input        Input
		wantLabel    string
		wantCategory core.Category
	}{
		{
			name:         "income by primary category",
			input:        Input{Name: "ACME PAYROLL", Category: core.SourceCategory{Primary: "INCOME", Detailed: "INCOME_WAGES"}},
			wantLabel:    "Paycheck",
			wantCategory: core.CategoryIncome,
		},
		{
			name:         "income by detailed category",
			input:        Input{Name: "Dividend", Category: core.SourceCategory{Primary: "TRANSFER_IN", Detailed: "TRANSFER_IN_INCOME_DIVIDENDS"}},
			wantLabel:    "Paycheck",
			wantCategory: core.CategoryIncome,
		},
		{
			name:         "card payment transfer",
			input:        Input{Name: "CHASE EPAY", Category: core.SourceCategory{Detailed: "TRANSFER_OUT_CREDIT_CARD_PAYMENT"}},
			wantLabel:    "Card Payment",
			wantCategory: core.CategoryCardPayment,
		},
		{
			name:         "rent by transfer category",
			input:        Input{Name: "ONLINE PAYMENT", Category: core.SourceCategory{Detailed: "TRANSFER_OUT_RENT"}},
			wantLabel:    "Rent",
			wantCategory: core.CategoryRent,
		},
		{
			name:         "rent by word boundary in name",
			input:        Input{Name: "Monthly Rent Payment"},
			wantLabel:    "Rent",
			wantCategory: core.CategoryRent,
		},
		{
			name:         "mortgage matches rent rule",
			input:        Input{Name: "WELLS FARGO MORTGAGE"},
			wantLabel:    "Rent",
			wantCategory: core.CategoryRent,
		},
		{
			name:         "parent inside a word does not match rent",
			input:        Input{Name: "PARENT TEACHER STORE"},
			wantLabel:    "PARENT TEACHER STORE",
			wantCategory: core.CategoryOther,
		},
		{
			name:         "known isp merchant",
			input:        Input{Name: "COMCAST CABLE", Merchant: "Comcast"},
			wantLabel:    "Internet",
			wantCategory: core.CategoryInternet,
		},
		{
			name:         "known utility merchant",
			input:        Input{Merchant: "SDGE ONLINE PMT"},
			wantLabel:    "Utilities",
			wantCategory: core.CategoryUtilities,
		},
		{
			name:         "utilities category code with internet hint",
			input:        Input{Name: "Some ISP", Category: core.SourceCategory{Detailed: "UTILITIES_INTERNET_AND_CABLE"}},
			wantLabel:    "Internet",
			wantCategory: core.CategoryInternet,
		},
		{
			name:         "utilities category code without hint",
			input:        Input{Name: "Water Dept", Category: core.SourceCategory{Detailed: "UTILITIES_WATER"}},
			wantLabel:    "Utilities",
			wantCategory: core.CategoryUtilities,
		},
		{
			name:         "subscription category with known merchant",
			input:        Input{Merchant: "Netflix", Category: core.SourceCategory{Detailed: "ENTERTAINMENT_SUBSCRIPTIONS"}},
			wantLabel:    "Subscription: Netflix",
			wantCategory: core.CategorySubscription,
		},
		{
			name:         "subscription category with unknown merchant",
			input:        Input{Merchant: "Obscure SaaS", Category: core.SourceCategory{Detailed: "ENTERTAINMENT_SUBSCRIPTIONS"}},
			wantLabel:    "Subscription: Recurring",
			wantCategory: core.CategorySubscription,
		},
		{
			name:         "known subscription merchant without category",
			input:        Input{Name: "SPOTIFY USA"},
			wantLabel:    "Subscription: Spotify",
			wantCategory: core.CategorySubscription,
		},
		{
			name:         "apple billing page",
			input:        Input{Name: "APPLE.COM/BILL"},
			wantLabel:    "Subscription: Apple Services",
			wantCategory: core.CategorySubscription,
		},
		{
			name:         "fallback to name",
			input:        Input{Name: "Corner Bakery"},
			wantLabel:    "Corner Bakery",
			wantCategory: core.CategoryOther,
		},
		{
			name:         "fallback to merchant when name empty",
			input:        Input{Merchant: "Corner Bakery"},
			wantLabel:    "Corner Bakery",
			wantCategory: core.CategoryOther,
		},
		{
			name:         "fallback when everything empty",
			input:        Input{},
			wantLabel:    "Payment",
			wantCategory: core.CategoryOther,
		},
		{
			name: "income outranks card payment",
			input: Input{
				Name:     "PAYROLL",
				Category: core.SourceCategory{Primary: "INCOME", Detailed: "TRANSFER_OUT_CREDIT_CARD_PAYMENT"},
			},
			wantLabel:    "Paycheck",
			wantCategory: core.CategoryIncome,
		},
		{
			name: "rent outranks utility merchant",
			input: Input{
				Name:     "Rent",
				Merchant: "Comcast",
			},
			wantLabel:    "Rent",
			wantCategory: core.CategoryRent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, category := Classify(tt.input)
			if label != tt.wantLabel || category != tt.wantCategory {
				t.Errorf("Classify() = (%q, %s), want (%q, %s)", label, category, tt.wantLabel, tt.wantCategory)
			}
		})
	}
}

func TestWindowFor(t *testing.T) {
	anchor := core.NewDate(2024, 3, 10)

	tests := []struct {
		name      string
		category  core.Category
		wantStart string
		wantEnd   string
	}{
		{"subscription", core.CategorySubscription, "2024-03-13", "2024-03-17"},
		{"internet", core.CategoryInternet, "2024-03-08", "2024-03-15"},
		{"utilities", core.CategoryUtilities, "2024-03-07", "2024-03-15"},
		{"card payment", core.CategoryCardPayment, "2024-03-07", "2024-03-13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowFor(tt.category, anchor)
			if w == nil {
				t.Fatal("expected a window")
			}
			if w.Start.String() != tt.wantStart || w.End.String() != tt.wantEnd {
				t.Errorf("window = %s..%s, want %s..%s", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
		})
	}

	t.Run("rent has no window", func(t *testing.T) {
		if w := WindowFor(core.CategoryRent, anchor); w != nil {
			t.Errorf("expected nil window, got %s..%s", w.Start, w.End)
		}
	})

	t.Run("income has no window", func(t *testing.T) {
		if w := WindowFor(core.CategoryIncome, anchor); w != nil {
			t.Errorf("expected nil window, got %s..%s", w.Start, w.End)
		}
	})

	t.Run("late month subscription collapses to anchor", func(t *testing.T) {
		// Start offset lands in April, so the intersection with March is
		// empty and the window collapses to the anchor day.
		w := WindowFor(core.CategorySubscription, core.NewDate(2024, 3, 29))
		if w.Start.String() != "2024-03-29" || w.End.String() != "2024-03-29" {
			t.Errorf("window = %s..%s, want anchor on both ends", w.Start, w.End)
		}
	})

	t.Run("window clamps at month end", func(t *testing.T) {
		w := WindowFor(core.CategoryInternet, core.NewDate(2024, 3, 29))
		if w.Start.String() != "2024-03-27" || w.End.String() != "2024-03-31" {
			t.Errorf("window = %s..%s, want 2024-03-27..2024-03-31", w.Start, w.End)
		}
	})

	t.Run("window clamps at month start", func(t *testing.T) {
		w := WindowFor(core.CategoryUtilities, core.NewDate(2024, 3, 2))
		if w.Start.String() != "2024-03-01" {
			t.Errorf("start = %s, want 2024-03-01", w.Start)
		}
	})
}
