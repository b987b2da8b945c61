package extract

// GenericFallbackID is the template every resolution ends on.
const GenericFallbackID = "generic_fallback"

var standardNoise = []string{"script", "style", ".ads", ".advertisement", ".chat-widget"}

// Defaults returns fresh copies of the built-in templates, one per page
// type plus the dealer.com VDP layout and the generic fallback.
func Defaults() []*Template {
	vdpSelectors := map[string][]string{
		"vehicle_heading": {".vehicle-title h1", ".vdp-title h1", "h1.vehicle-name", "h1"},
		"price_primary":   {".pricing-module .price", ".internet-price", ".final-price", "[class*='price']"},
		"price_section":   {".pricing-module", ".price-section", ".vehicle-pricing"},
		"dealer_name":     {".dealer-info .name", ".dealership-name"},
		"stock_number":    {".stock-number", ".vin-stock .stock"},
		"vin":             {".vin-number", ".vehicle-vin"},
		"disclaimers":     {".legal-disclaimers", ".pricing-disclaimers", ".disclaimer-text"},
		"description":     {".vehicle-description", ".vehicle-overview"},
		"features":        {".vehicle-features", ".equipment-list", ".features-list"},
	}
	vdpOrder := []string{"vehicle_heading", "stock_number", "vin", "price_section", "description", "features", "disclaimers"}
	vdpRemove := []string{
		"nav", "header.site-header", "footer.site-footer",
		".navigation", ".main-menu", ".sidebar", ".recommended-vehicles",
	}

	vdp := &Template{
		ID:           "vdp_default",
		Platform:     "vdp",
		SectionOrder: vdpOrder,
		Selectors:    vdpSelectors,
		Cleanup: Cleanup{
			RemoveSelectors:     append(append([]string(nil), vdpRemove...), standardNoise...),
			MainContentOnly:     true,
			RemoveDuplicateText: true,
		},
	}

	dealerCom := vdp.Clone()
	dealerCom.ID = "dealer.com_vdp"
	dealerCom.Platform = "dealer.com"
	dealerCom.Selectors["vehicle_heading"] = []string{".vehicle-title h1", ".vdp-title h1", "h1.vehicle-name"}
	dealerCom.Selectors["price_primary"] = []string{".pricing-module .price", ".internet-price", ".final-price"}
	dealerCom.Cleanup.RemoveSelectors = append(append([]string(nil), vdpRemove...), "script", "style", ".ads", ".advertisement")

	return []*Template{
		vdp,
		dealerCom,
		{
			ID:       "homepage_default",
			Platform: "homepage",
			Selectors: map[string][]string{
				"dealership_name":     {"h1", ".dealership-name", ".dealer-name", ".brand-name"},
				"header_contact":      {"header [class*='phone']", "header [class*='contact']", ".header-phone"},
				"main_content":        {"main", ".main-content", "#main", ".content"},
				"footer_content":      {"footer", ".footer", ".site-footer", "#footer"},
				"contact_section":     {".contact", ".contact-us", ".location", ".hours"},
				"promotional_banners": {".banner", ".promo", ".special", ".hero"},
				"featured_vehicles":   {".featured", ".inventory-preview", ".vehicle-showcase"},
			},
			SectionOrder: []string{
				"dealership_name", "header_contact", "main_content", "promotional_banners",
				"featured_vehicles", "contact_section", "footer_content",
			},
			// Footer and header stay: contact details often live only there.
			Cleanup: Cleanup{
				RemoveSelectors: []string{"script", "style", ".ads", ".advertisement", "iframe[src*='chat']", ".chat-widget"},
			},
		},
		{
			ID:       "inventory_default",
			Platform: "inventory",
			Selectors: map[string][]string{
				"page_heading":        {"h1", ".page-title", ".inventory-title"},
				"filter_section":      {".filters", ".search-filters", ".inventory-filters"},
				"vehicle_cards":       {".vehicle-card", ".inventory-item", ".vehicle-listing"},
				"general_disclaimers": {".inventory-disclaimer", ".general-disclaimer", "footer .disclaimer"},
				"pagination":          {".pagination", ".page-nav"},
				"sort_controls":       {".sort", ".sorting", "[class*='sort']"},
			},
			SectionOrder: []string{"page_heading", "filter_section", "sort_controls", "vehicle_cards", "pagination", "general_disclaimers"},
			Cleanup: Cleanup{
				RemoveSelectors: append([]string{".site-header nav", ".main-navigation", ".mega-menu"},
					append(append([]string(nil), standardNoise...), ".recommended-vehicles", ".recent-searches")...),
				RemoveDuplicateText: true,
			},
		},
		{
			ID:       "specials_default",
			Platform: "specials",
			Selectors: map[string][]string{
				"page_heading":       {"h1", ".page-title", ".specials-title"},
				"promotional_offers": {".special", ".promo", ".offer", ".deal"},
				"terms_conditions":   {".terms", ".conditions", ".disclaimer", ".fine-print"},
				"expiration_dates":   {"[class*='expir']", "[class*='valid-through']"},
				"footer_disclaimers": {"footer .disclaimer", "footer .terms"},
			},
			SectionOrder: []string{"page_heading", "promotional_offers", "expiration_dates", "terms_conditions", "footer_disclaimers"},
			Cleanup:      Cleanup{RemoveSelectors: append([]string(nil), standardNoise...)},
		},
		{
			ID:       "service_default",
			Platform: "service",
			Selectors: map[string][]string{
				"service_heading":   {"h1", ".service-title", ".page-title"},
				"service_hours":     {".hours", ".service-hours", "[class*='hour']"},
				"location_info":     {".location", ".address", ".contact"},
				"service_offerings": {".services", ".service-list", ".offerings"},
				"pricing_specials":  {".service-special", ".coupon", ".service-price"},
				"footer_contact":    {"footer .contact", "footer .hours"},
			},
			SectionOrder: []string{"service_heading", "service_hours", "location_info", "service_offerings", "pricing_specials", "footer_contact"},
			Cleanup:      Cleanup{RemoveSelectors: append([]string(nil), standardNoise...)},
		},
		{
			ID:       "financing_default",
			Platform: "financing",
			Selectors: map[string][]string{
				"financing_heading": {"h1", ".financing-title", ".page-title"},
				"rate_information":  {".rates", ".apr", ".financing-rates"},
				"calculator":        {".calculator", ".payment-calculator"},
				"disclaimers":       {".disclaimer", ".disclosure", ".legal"},
				"footer_legal":      {"footer .disclaimer", "footer .legal", "footer .disclosure"},
			},
			SectionOrder: []string{"financing_heading", "rate_information", "calculator", "disclaimers", "footer_legal"},
			Cleanup:      Cleanup{RemoveSelectors: append([]string(nil), standardNoise...)},
		},
		{
			ID:       GenericFallbackID,
			Platform: "unknown",
			Selectors: map[string][]string{
				"vehicle_heading": {"h1", ".title", ".vehicle-title"},
				"price_primary":   {".price", ".pricing", "[class*='price']"},
				"description":     {".description", ".details", "main"},
			},
			SectionOrder: []string{"vehicle_heading", "price_primary", "description"},
			Cleanup:      Cleanup{RemoveSelectors: []string{"script", "style"}},
		},
	}
}
