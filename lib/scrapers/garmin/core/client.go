// client.go holds the cookie-carrying HTTP session every other part of the
// scraper talks to garmin through.

package core

import (
	"context"
	"fmt"
	"garmin-scraper/lib/restyutil"
	"net/http"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// garmin serves a stripped down (or no) page to clients it does not recognize
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/54.0.2816.0 Safari/537.36"

type Client struct {
	Endpoints Endpoints
	Http      *resty.Client
	jar       *sessionJar
}

type ClientOptions struct {
	Endpoints Endpoints
	// defaults to DefaultUserAgent
	UserAgent string
	// zero leaves the transport default in place
	Timeout time.Duration
	// wraps the transport with the cloudflare browser fingerprint
	BypassCloudflare bool
	// if set, full request/response dumps are written here in debug mode
	InstrumentOutput restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpClient.SetHeader("user-agent", userAgent)
	// the login flow bounces between the sso and connect hosts
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	restyutil.InstrumentClient(httpClient, tracer, opts.InstrumentOutput)

	return &Client{
		Endpoints: opts.Endpoints.WithDefaults(),
		Http:      httpClient,
		jar:       jar,
	}, nil
}

// Request performs a GET when form is nil and a form-encoded POST otherwise.
// Any non-2xx response fails with a *StatusError.
func (c *Client) Request(ctx context.Context, rawUrl string, form url.Values) ([]byte, error) {
	req := c.Http.R().SetContext(ctx)

	method := http.MethodGet
	var (
		res *resty.Response
		err error
	)
	if form == nil {
		res, err = req.Get(rawUrl)
	} else {
		method = http.MethodPost
		res, err = req.SetFormDataFromValues(form).Post(rawUrl)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, rawUrl, err)
	}
	if !res.IsSuccess() {
		return nil, &StatusError{
			Method:     method,
			URL:        rawUrl,
			StatusCode: res.StatusCode(),
		}
	}
	return res.Body(), nil
}

// Cookie returns the value of the named cookie the session would send to
// rawUrl. Cookies scoped elsewhere (another path or garmin host) are found
// too when nothing matches rawUrl.
func (c *Client) Cookie(rawUrl, name string) (string, bool) {
	u, err := url.Parse(rawUrl)
	if err == nil {
		for _, cookie := range c.jar.Cookies(u) {
			if cookie.Name == name {
				return cookie.Value, true
			}
		}
	}
	return c.jar.Find(name)
}
