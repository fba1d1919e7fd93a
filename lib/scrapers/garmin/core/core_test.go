package core_test

import (
	"context"
	"errors"
	"garmin-scraper/lib/scrapers/garmin/core"
	"garmin-scraper/lib/telemetry"
	"garmin-scraper/lib/testutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, fake *testutil.FakeGarmin) *core.Client {
	client, err := core.NewClient(core.ClientOptions{
		Endpoints: core.Endpoints{
			Connect: fake.ConnectURL(),
			SSO:     fake.SSOURL(),
		},
	})
	require.NoError(t, err)
	return client
}

func credentials() core.Credentials {
	return core.Credentials{
		Username: testutil.FakeUsername,
		Password: testutil.FakePassword,
	}
}

func TestServiceTicket(t *testing.T) {
	ticket, err := core.ServiceTicket("TGT-abc123")
	require.NoError(t, err)
	require.Equal(t, "ST-0abc123", ticket)

	ticket, err = core.ServiceTicket("TGT-")
	require.NoError(t, err)
	require.Equal(t, "ST-0", ticket)

	_, err = core.ServiceTicket("TG")
	require.ErrorIs(t, err, core.ErrAuth)
}

func TestLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/garmin/core")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	fake := testutil.NewFakeGarmin(t)
	client := newClient(t, fake)

	err := client.Login(ctx, credentials())
	require.NoError(t, err)

	require.Equal(t, 1, fake.Hits("/gauth/hostname"))
	require.Equal(t, 2, fake.Hits("/sso/login"))
	require.Equal(t, 1, fake.Hits("/post-auth/login"))

	// authenticated endpoints accept the session from now on
	_, err = client.Request(ctx, client.Endpoints.ActivityList(), nil)
	require.NoError(t, err)

	for _, ua := range fake.UserAgents() {
		require.Equal(t, core.DefaultUserAgent, ua)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	fake := testutil.NewFakeGarmin(t)
	client := newClient(t, fake)

	creds := credentials()
	creds.Password = "wrong"
	err := client.Login(context.Background(), creds)
	require.ErrorIs(t, err, core.ErrAuth)
	require.Contains(t, err.Error(), "no ticket cookie")
	require.Equal(t, 0, fake.Hits("/post-auth/login"))
}

func TestLoginTicketScopedElsewhere(t *testing.T) {
	fake := testutil.NewFakeGarmin(t)
	// never sent back to /sso/login, only the jar saw it
	fake.TicketPath = "/sso/cas"
	client := newClient(t, fake)

	err := client.Login(context.Background(), credentials())
	require.NoError(t, err)
	require.Equal(t, 1, fake.Hits("/post-auth/login"))

	ticket, ok := client.Cookie(client.Endpoints.Connect, core.TicketCookie)
	require.True(t, ok)
	require.Equal(t, testutil.FakeTicket, ticket)
}

func TestLoginMissingHost(t *testing.T) {
	fake := testutil.NewFakeGarmin(t)
	fake.ServeHost = false
	client := newClient(t, fake)

	err := client.Login(context.Background(), credentials())
	require.ErrorIs(t, err, core.ErrAuth)
	require.Equal(t, 0, fake.Hits("/sso/login"))
}

func TestLoginMalformedHostname(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client, err := core.NewClient(core.ClientOptions{
		Endpoints: core.Endpoints{Connect: srv.URL, SSO: srv.URL + "/sso"},
	})
	require.NoError(t, err)

	err = client.Login(context.Background(), credentials())
	require.ErrorIs(t, err, core.ErrAuth)
}

func TestRequestStatusError(t *testing.T) {
	fake := testutil.NewFakeGarmin(t)
	client := newClient(t, fake)

	// not logged in yet
	_, err := client.Request(context.Background(), client.Endpoints.ActivityList(), nil)
	require.ErrorIs(t, err, core.ErrTransport)

	var statusErr *core.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	require.Equal(t, http.MethodGet, statusErr.Method)
}

func TestRequestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := core.NewClient(core.ClientOptions{})
	require.NoError(t, err)

	_, err = client.Request(context.Background(), url, nil)
	require.ErrorIs(t, err, core.ErrTransport)
}

func TestEndpointsDefaults(t *testing.T) {
	e := core.Endpoints{Connect: "https://example.com/"}.WithDefaults()
	require.Equal(t, "https://example.com", e.Connect)
	require.Equal(t, core.DefaultSSOBase, e.SSO)
	require.Equal(t, "https://example.com/post-auth/login?ticket=ST-0abc", e.PostAuth("ST-0abc"))
	require.Equal(t, "https://example.com/modern/proxy/activity-service/activity/42/splits", e.ActivitySplits("42"))
	require.Len(t, e.LoginParams("host"), 20)
}
