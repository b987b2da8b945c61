package templates

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDetectPlatform(t *testing.T) {
	cases := map[string]string{
		`<div class="page vdp-container"></div>`:           PlatformDealerCom,
		`<header class="dealeron-header"></header>`:        PlatformDealerOn,
		`<section class="atc-listing"></section>`:          PlatformAutoTrader,
		`<div class="listing-container grid"></div>`:       PlatformCarsCom,
		`<form class="adf-lead"></form>`:                   PlatformCDK,
		`<div class="hero"><p>Welcome to Motors</p></div>`: PlatformUnknown,
	}
	for html, want := range cases {
		if got := DetectPlatform(doc(t, html)); got != want {
			t.Errorf("%s: got %s, want %s", html, got, want)
		}
	}
}

func TestPageTemplateID(t *testing.T) {
	cases := []struct {
		url, platform, html, want string
	}{
		{"https://a.example/x", PlatformDealerCom, "", "dealer.com_vdp"},
		{"https://a.example/x", PlatformUnknown, `<script src="//static.dealer.com/v9.js">`, "dealer.com_vdp"},
		{"https://a.example/x", PlatformUnknown, `<div class="DealerOn-footer">`, "dealeron_vdp"},
		{"https://a.example/x", PlatformCDK, "", "cdk_vdp"},
		{"https://a.example/x", PlatformAutoTrader, "", "autotrader_vdp"},
		{"https://www.Allstar.example:8443/used", PlatformUnknown, "<p>hi</p>", "custom_allstar.example"},
		{"::bad", PlatformUnknown, "", "custom_unknown"},
	}
	for _, tc := range cases {
		if got := PageTemplateID(tc.url, tc.platform, []byte(tc.html)); got != tc.want {
			t.Errorf("%s/%s: got %s, want %s", tc.url, tc.platform, got, tc.want)
		}
	}
}
