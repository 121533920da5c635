// Package clienttype classifies inbound requests into one of three client
// types. The type decides two things: how the session credential travels
// (cookie vs bearer header) and which BankID authentication method the
// broker is hinted toward at login initiation.
package clienttype

import (
	"net/http"

	"github.com/mssola/useragent"
)

// ClientType is a closed three-variant enum.
type ClientType string

const (
	Web           ClientType = "web"
	MobileBrowser ClientType = "mobile-browser"
	NativeApp     ClientType = "native-app"
)

// Header is the explicit client-type override header.
const Header = "x-client"

// BankID authentication method hints, passed to the broker as acr_values.
// A desktop browser is pushed toward the cross-device QR flow; anything
// already on the user's phone authenticates same-device.
const (
	acrQR         = "urn:grn:authn:se:bankid:another-device:qr"
	acrSameDevice = "urn:grn:authn:se:bankid:same-device"
)

// Parse maps an x-client header value onto a ClientType. Only the three
// known values are trusted.
func Parse(v string) (ClientType, bool) {
	switch v {
	case "web":
		return Web, true
	case "mobile":
		return MobileBrowser, true
	case "app":
		return NativeApp, true
	default:
		return "", false
	}
}

// FromString parses a canonical ClientType string, as recorded alongside the
// login state nonce. Only the three enum values round-trip.
func FromString(v string) (ClientType, bool) {
	switch ct := ClientType(v); ct {
	case Web, MobileBrowser, NativeApp:
		return ct, true
	default:
		return "", false
	}
}

// Detect classifies a request. Order: explicit header, then user-agent
// mobile sniffing, then web. Total by construction; unit-testable without a
// server.
func Detect(r *http.Request) ClientType {
	if ct, ok := Parse(r.Header.Get(Header)); ok {
		return ct
	}
	if ua := r.UserAgent(); ua != "" && useragent.New(ua).Mobile() {
		return MobileBrowser
	}
	return Web
}

// UsesCookies reports whether the session credential travels as a cookie for
// this client type. Native apps carry it in the Authorization header.
func (c ClientType) UsesCookies() bool {
	return c != NativeApp
}

// BrokerHint returns the BankID acr hint for login initiation.
func (c ClientType) BrokerHint() string {
	if c == Web {
		return acrQR
	}
	return acrSameDevice
}
