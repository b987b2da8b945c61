package templates

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Known dealership website platforms.
const (
	PlatformDealerCom  = "dealer.com"
	PlatformDealerOn   = "DealerOn"
	PlatformAutoTrader = "AutoTrader"
	PlatformCarsCom    = "Cars.com"
	PlatformCDK        = "CDK"
	PlatformUnknown    = "unknown"
)

// platformMarkers are class-name fragments, checked in order.
var platformMarkers = []struct {
	platform  string
	fragments []string
}{
	{PlatformDealerCom, []string{"dealer-logo", "vdp-container"}},
	{PlatformDealerOn, []string{"dealeron", "dealer-on"}},
	{PlatformAutoTrader, []string{"atc-", "autotrader"}},
	{PlatformCarsCom, []string{"cars-com", "listing-container"}},
	{PlatformCDK, []string{"cdk-", "adf-"}},
}

// DetectPlatform names the platform whose class-name markers appear in doc,
// or PlatformUnknown.
func DetectPlatform(doc *goquery.Document) string {
	for _, m := range platformMarkers {
		for _, frag := range m.fragments {
			if doc.Find(`[class*='` + frag + `']`).Length() > 0 {
				return m.platform
			}
		}
	}
	return PlatformUnknown
}

// PageTemplateID identifies the rendering template a page was built from.
// It keys the decision cache: pages sharing it share visual verdicts.
// Known platforms map to "<platform>_vdp"; anything else to
// "custom_<domain>".
func PageTemplateID(pageURL, platform string, page []byte) string {
	p := strings.ToLower(platform)
	switch {
	case p == PlatformDealerCom || bytes.Contains(page, []byte("dealer.com")):
		return "dealer.com_vdp"
	case strings.Contains(p, "dealeron") || bytes.Contains(bytes.ToLower(page), []byte("dealeron")):
		return "dealeron_vdp"
	case strings.Contains(p, "cdk"):
		return "cdk_vdp"
	case strings.Contains(p, "autotrader"):
		return "autotrader_vdp"
	}
	d, err := Domain(pageURL)
	if err != nil {
		return "custom_unknown"
	}
	return "custom_" + d
}
