// Package classify assigns a support category to inbound messages.
//
// Classification is keyword containment over the lower-cased subject and
// body, evaluated in declared order with the first matching rule winning.
// The order of the rule table is preserved behavior for overlapping keyword
// sets; changing it changes how existing mail is categorized.
package classify

import (
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

type rule struct {
	category domain.Category
	keywords []string
}

var rules = []rule{
	{domain.CategoryPasswordReset, []string{"password reset", "reset password", "forgot password", "forgot my password"}},
	{domain.CategoryVerification, []string{"verification", "verify", "kyc"}},
	{domain.CategoryOTPIssue, []string{"otp", "one time password", "one-time password"}},
	{domain.CategoryPaymentIssue, []string{"payment", "invoice", "transaction", "refund"}},
	{domain.CategoryProfileIssue, []string{"profile", "account detail", "update my email", "update my phone"}},
	{domain.CategoryLoginIssue, []string{"login", "log in", "sign in", "signin", "can't access"}},
}

// Categorize maps subject and body text to a fixed category, defaulting to
// general when no rule matches.
func Categorize(subject, body string) domain.Category {
	text := strings.ToLower(subject + " " + body)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category
			}
		}
	}
	return domain.CategoryGeneral
}
