package identity

// Claims are the broker-verified identity attributes a login produces.
// PersonalNumber transits only in memory during the callback; it is hashed
// before anything touches a store and never persisted in plaintext.
type Claims struct {
	Subject        string
	PersonalNumber string
	Name           string
	GivenName      string
	FamilyName     string
}
