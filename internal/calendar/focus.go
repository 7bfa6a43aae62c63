package calendar

import "paycal/internal/core"

// Overdraft wins when projected net cash dips below a quarter of the policy
// buffer into the red. The margin absorbs small one-off deficits that a
// balanced plan handles fine.
const overdraftNetFactor = -0.25

// When no per-card utilization is reported, assume a mid-range value rather
// than zero so a present card still influences focus selection.
const assumedCardUtilization = 0.5

// PickFocus selects the optimization objective for a payload: overdraft when
// projected net cash is deeply negative, utilization when a card reports
// usage well above the policy target, balanced otherwise.
func PickFocus(p *core.Payload) core.Focus {
	bufferMin := p.Policy.BufferMin.Or(core.DefaultBufferMin)
	net := p.TotalIn() - p.TotalOut()
	if net < bufferMin*overdraftNetFactor {
		return core.FocusOverdraft
	}

	if len(p.Cards) > 0 {
		utilization := p.Cards[0].Utilization.Or(assumedCardUtilization)
		if utilization > 1.5*p.Policy.TargetUtilization() {
			return core.FocusUtilization
		}
	}
	return core.FocusBalanced
}
