package core

import (
	"fmt"
	"net/url"
	"strings"

	"dario.cat/mergo"
)

const (
	DefaultConnectBase = "https://connect.garmin.com"
	DefaultSSOBase     = "https://sso.garmin.com/sso"

	gauthCss = "https://static.garmincdn.com/com.garmin.connect/ui/css/gauth-custom-v1.1-min.css"
)

// Endpoints locates every Garmin Connect resource the scraper touches.
type Endpoints struct {
	// Connect is the connect web app root, without a trailing slash.
	Connect string
	// SSO is the single sign-on root, without a trailing slash.
	SSO string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Connect: DefaultConnectBase,
		SSO:     DefaultSSOBase,
	}
}

// WithDefaults fills in any empty base with the public Garmin hosts.
func (e Endpoints) WithDefaults() Endpoints {
	// only fails on mismatched types
	_ = mergo.Merge(&e, DefaultEndpoints())
	e.Connect = strings.TrimSuffix(e.Connect, "/")
	e.SSO = strings.TrimSuffix(e.SSO, "/")
	return e
}

func (e Endpoints) Hostname() string {
	return e.Connect + "/gauth/hostname"
}

func (e Endpoints) postAuthBase() string {
	return e.Connect + "/post-auth/login"
}

// LoginParams are the query parameters the SSO widget is loaded with.
func (e Endpoints) LoginParams(webhost string) url.Values {
	redirect := e.postAuthBase()
	return url.Values{
		"service":                         {redirect},
		"webhost":                         {webhost},
		"source":                          {e.Connect + "/en-US/signin"},
		"redirectAfterAccountLoginUrl":    {redirect},
		"redirectAfterAccountCreationUrl": {redirect},
		"gauthHost":                       {e.SSO},
		"locale":                          {"en_US"},
		"id":                              {"gauth-widget"},
		"cssUrl":                          {gauthCss},
		"clientId":                        {"GarminConnect"},
		"rememberMeShown":                 {"true"},
		"rememberMeChecked":               {"false"},
		"createAccountShown":              {"true"},
		"openCreateAccount":               {"false"},
		"usernameShown":                   {"false"},
		"displayNameShown":                {"false"},
		"consumeServiceTicket":            {"false"},
		"initialFocus":                    {"true"},
		"embedWidget":                     {"false"},
		"generateExtraServiceTicket":      {"false"},
	}
}

func (e Endpoints) Login(webhost string) string {
	return e.SSO + "/login?" + e.LoginParams(webhost).Encode()
}

func (e Endpoints) PostAuth(ticket string) string {
	return e.postAuthBase() + "?" + url.Values{"ticket": {ticket}}.Encode()
}

func (e Endpoints) ActivityList() string {
	return e.Connect + "/minactivities"
}

func (e Endpoints) Activity(id string) string {
	return fmt.Sprintf("%s/modern/activity/%s", e.Connect, id)
}

func (e Endpoints) ActivityData(id string) string {
	return fmt.Sprintf("%s/modern/proxy/activity-service/activity/%s", e.Connect, id)
}

func (e Endpoints) ActivitySplits(id string) string {
	return e.ActivityData(id) + "/splits"
}

func (e Endpoints) ActivityDetails(id string) string {
	return e.ActivityData(id) + "/details"
}

func (e Endpoints) ActivityGPX(id string) string {
	return fmt.Sprintf("%s/modern/proxy/download-service/export/gpx/activity/%s", e.Connect, id)
}
