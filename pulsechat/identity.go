package pulsechat

import "github.com/pulsechat/pulsechat-sdk-go/pulsechat/rest"

// Identity supplies the current user. The client only reads it; login and
// session management live elsewhere.
type Identity interface {
	CurrentUser() rest.User
	Authenticated() bool
}

// StaticIdentity is a fixed identity, handy for tools and tests.
type StaticIdentity struct {
	User rest.User
}

func (s StaticIdentity) CurrentUser() rest.User { return s.User }

func (s StaticIdentity) Authenticated() bool { return s.User.ID != "" }
