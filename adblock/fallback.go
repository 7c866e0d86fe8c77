package adblock

// basicBlockList holds well-known ad-serving and tracking hosts used when no
// filter list could be loaded at all.
var basicBlockList = []string{
	"doubleclick.net",
	"googleadservices.com",
	"googlesyndication.com",
	"googletagmanager.com",
	"googletagservices.com",
	"google-analytics.com",
	"facebook.com/tr",
	"connect.facebook.net",
	"amazon-adsystem.com",
	"ads.yahoo.com",
	"advertising.com",
	"adsystem.net",
	"adsenser.com",
	"outbrain.com",
	"taboola.com",
	"addthis.com",
	"scorecardresearch.com",
	"quantserve.com",
}

// BasicRules returns the built-in fallback rules as domain rules.
func BasicRules() []Rule {
	rules := make([]Rule, 0, len(basicBlockList))
	for _, d := range basicBlockList {
		rules = append(rules, DomainRule{Domain: d})
	}
	return rules
}
