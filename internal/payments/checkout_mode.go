package payments

import "strings"

// ResolveCheckoutProvider picks the card checkout backend from a mode string.
// Modes:
// - "stripe": Stripe Checkout, only when a secret key is configured
// - "fake": the in-app fake page, only when fake payments are allowed
// - "auto" or empty: Stripe when configured, otherwise fake when allowed
// An empty result means card checkout is disabled.
func ResolveCheckoutProvider(mode string, stripeConfigured, allowFake bool) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ProviderStripe:
		if stripeConfigured {
			return ProviderStripe
		}
		return ""
	case ProviderFake:
		if allowFake {
			return ProviderFake
		}
		return ""
	default:
		if stripeConfigured {
			return ProviderStripe
		}
		if allowFake {
			return ProviderFake
		}
		return ""
	}
}
