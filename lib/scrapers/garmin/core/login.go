package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel/codes"
)

// TicketCookie is the ticket-granting cookie the sso sets after a
// successful credential submission.
const TicketCookie = "CASTGC"

const (
	ticketGrantingPrefix = "TGT-"
	serviceTicketPrefix  = "ST-0"
)

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) form() url.Values {
	return url.Values{
		"username":            {c.Username},
		"password":            {c.Password},
		"embed":               {"true"},
		"lt":                  {"e1s1"},
		"_eventId":            {"submit"},
		"displayNameRequired": {"false"},
	}
}

// ServiceTicket turns a ticket-granting cookie value into the service ticket
// the post-auth endpoint accepts, "TGT-abc" -> "ST-0abc".
func ServiceTicket(ticketGranting string) (string, error) {
	if len(ticketGranting) < len(ticketGrantingPrefix) {
		return "", fmt.Errorf("%w: malformed ticket cookie %q", ErrAuth, ticketGranting)
	}
	return serviceTicketPrefix + ticketGranting[len(ticketGrantingPrefix):], nil
}

func (c *Client) resolveWebhost(ctx context.Context) (string, error) {
	body, err := c.Request(ctx, c.Endpoints.Hostname(), nil)
	if err != nil {
		return "", err
	}
	var hostname struct {
		Host *string `json:"host"`
	}
	err = json.Unmarshal(body, &hostname)
	if err != nil {
		return "", fmt.Errorf("%w: decode hostname response: %w", ErrAuth, err)
	}
	if hostname.Host == nil {
		return "", fmt.Errorf("%w: hostname response has no host field", ErrAuth)
	}
	return *hostname.Host, nil
}

// Login runs the sso handshake, on success the session cookies are valid
// for every later request made through c.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginError := func(step string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		return fmt.Errorf("garmin: login failed: %s: %w", step, err)
	}

	slog.InfoContext(ctx, "authenticating", "username", creds.Username)

	webhost, err := c.resolveWebhost(ctx)
	if err != nil {
		return loginError("resolve webhost", err)
	}
	loginUrl := c.Endpoints.Login(webhost)

	// seeds the session cookies, the page itself is of no interest
	_, err = c.Request(ctx, loginUrl, nil)
	if err != nil {
		return loginError("load login page", err)
	}

	_, err = c.Request(ctx, loginUrl, creds.form())
	if err != nil {
		return loginError("submit credentials", err)
	}

	ticketGranting, ok := c.Cookie(loginUrl, TicketCookie)
	if !ok {
		return loginError(
			"exchange ticket",
			fmt.Errorf("%w: no ticket cookie, check credentials", ErrAuth),
		)
	}
	ticket, err := ServiceTicket(ticketGranting)
	if err != nil {
		return loginError("exchange ticket", err)
	}

	_, err = c.Request(ctx, c.Endpoints.PostAuth(ticket), nil)
	if err != nil {
		return loginError("exchange ticket", err)
	}

	slog.InfoContext(ctx, "finished authentication")
	return nil
}
