package rules

import "strings"

// Page types. The string value is what callers pass as urlType.
const (
	PageVDP       = "VDP"
	PageInventory = "INVENTORY"
	PageHomepage  = "HOMEPAGE"
	PageAbout     = "ABOUT"
	PageSpecials  = "SPECIALS"
	PageService   = "SERVICE"
	PageFinancing = "FINANCING"
)

type pageType struct {
	name     string
	preamble string
}

var pageTypes = map[string]pageType{
	PageVDP: {"Vehicle Detail Page", `This is a Vehicle Detail Page (VDP) showing one vehicle for sale.

Focus on:
- Price disclosure: the price is clear, fees are disclosed near it, any qualification is conspicuous.
- Vehicle identification: year, make and model are associated with the price; VIN or stock number is present.
- Disclaimers: financing, rebate and tax/title/license disclaimers are present where claims are made.
- Visual proximity: vehicle identification sits with the price; disclaimers sit with their claims.

Do not flag inventory-level features (filtering, sorting) or homepage requirements here.
Vehicle information in the page heading above the price section counts as adjacent.`},

	PageInventory: {"Inventory List Page", `This is an inventory list page showing several vehicles.

Focus on:
- Each advertised price is tied to an identifiable vehicle.
- Quantity disclosures when a price applies to several vehicles.
- General disclaimers covering listed prices are present and reachable.

Do not require full per-vehicle disclosures that belong on detail pages.`},

	PageHomepage: {"Dealership Homepage", `This is the dealership homepage.

Focus on:
- The dealership name is conspicuous.
- Physical address, phone number and business hours are easy to find (header or footer is fine).
- Promotional banners carry their required disclaimers.

Do not flag missing vehicle-specific details on this page.`},

	PageAbout: {"About Page", `This is the dealership "about" page.

Focus on dealership identity, licensing statements and claims about the business
(volume, exclusivity, awards) that must not mislead.`},

	PageSpecials: {"Specials / Offers Page", `This is a specials or offers page.

Focus on:
- Every offer states its terms, qualifications and expiration.
- Rebates and incentives are identified and not silently baked into prices.
- Savings claims are substantiated; "up to" style claims meet their conditions.`},

	PageService: {"Service Department Page", `This is a service department page.

Focus on service pricing and coupon terms, hours and location, and any
"free" offers that actually require a purchase.`},

	PageFinancing: {"Financing Page", `This is a financing or credit page.

Focus on:
- APR and payment terms are disclosed whenever a trigger term appears.
- Lease advertising uses the word "lease" and discloses limitations.
- Prohibited claims such as "guaranteed approval" or "everybody financed".
- Calculators are labelled as estimates.`},
}

// NormalizePageType uppercases and trims urlType.
func NormalizePageType(urlType string) string {
	return strings.ToUpper(strings.TrimSpace(urlType))
}

// KnownPageType reports whether urlType has dedicated context.
func KnownPageType(urlType string) bool {
	_, ok := pageTypes[NormalizePageType(urlType)]
	return ok
}

// Preamble returns the page-type context for the text model. Unknown types
// use the VDP context.
func Preamble(urlType string) string {
	if pt, ok := pageTypes[NormalizePageType(urlType)]; ok {
		return pt.preamble
	}
	return pageTypes[PageVDP].preamble
}

// PageTypeName returns a human readable page type name, or urlType itself
// when unknown.
func PageTypeName(urlType string) string {
	if pt, ok := pageTypes[NormalizePageType(urlType)]; ok {
		return pt.name
	}
	return urlType
}
