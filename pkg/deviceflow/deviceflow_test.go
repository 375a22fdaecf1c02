package deviceflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/humanitybadge/cli/pkg/credential"
	"github.com/humanitybadge/cli/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "Iv1.testclient123"

type testEnv struct {
	client    *Client
	vault     *credential.Vault
	local     *store.MemoryStore
	tokenHits atomic.Int32
	token     http.HandlerFunc
	user      http.HandlerFunc
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		user: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"login":"octo","name":"Octo Cat","avatar_url":"https://avatars.example/octo"}`))
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, testClientID, r.Form.Get("client_id"))
		assert.Equal(t, "gist", r.Form.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev-1","user_code":"ABCD-1234","verification_uri":"https://github.com/login/device","expires_in":900,"interval":5}`))
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		env.tokenHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		env.token(w, r)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) { env.user(w, r) })

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env.local = store.NewMemoryStore()
	env.vault = credential.NewVault(store.NewMemoryStore())
	env.client = New(Config{
		ClientID:      testClientID,
		DeviceAuthURL: srv.URL + "/login/device/code",
		TokenURL:      srv.URL + "/login/oauth/access_token",
		APIURL:        srv.URL,
	}, env.vault, env.local, opts...)
	return env
}

func (env *testEnv) seedSession(t *testing.T, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, store.SetJSON(context.Background(), env.local, KeySession, Session{
		DeviceCode:      "dev-1",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://github.com/login/device",
		ExpiresAt:       expiresAt.UnixMilli(),
		IntervalSeconds: 5,
	}))
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(body)) }
}

func TestConfigured(t *testing.T) {
	for id, want := range map[string]bool{
		"":                            false,
		"YOUR_GITHUB_OAUTH_CLIENT_ID": false,
		"short":                       false,
		DefaultClientID:               true,
	} {
		c := New(Config{ClientID: id}, nil, nil)
		assert.Equal(t, want, c.Configured(), id)
	}
}

func TestInitiate_PersistsSession(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now()

	sess, err := env.client.Initiate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABCD-1234", sess.UserCode)
	assert.Equal(t, 5, sess.IntervalSeconds)
	assert.InDelta(t, start.Add(900*time.Second).UnixMilli(), sess.ExpiresAt, 2000)

	stored, err := env.client.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "dev-1", stored.DeviceCode)
}

func TestInitiate_ExpiryFollowsInjectedClock(t *testing.T) {
	now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	env := newTestEnv(t, WithClock(func() time.Time { return now }))

	sess, err := env.client.Initiate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(900*time.Second).UnixMilli(), sess.ExpiresAt)
	assert.False(t, sess.Expired(now.Add(899*time.Second)))
	assert.True(t, sess.Expired(now.Add(901*time.Second)))
}

func TestInitiate_NotConfigured(t *testing.T) {
	c := New(Config{ClientID: "YOUR_CLIENT"}, credential.NewVault(store.NewMemoryStore()), store.NewMemoryStore())
	_, err := c.Initiate(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInitiate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unauthorized_client","error_description":"Unknown client"}`))
	}))
	defer srv.Close()

	c := New(Config{ClientID: testClientID, DeviceAuthURL: srv.URL}, credential.NewVault(store.NewMemoryStore()), store.NewMemoryStore())
	_, err := c.Initiate(context.Background())

	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "unauthorized_client", se.Code)
	assert.Contains(t, err.Error(), "Unknown client")
}

func TestPoll_ExpiredSessionMakesNoRequest(t *testing.T) {
	env := newTestEnv(t)
	env.token = respond(`{"access_token":"should-not-happen"}`)
	env.seedSession(t, time.Now().Add(-time.Second))

	res := env.client.Poll(context.Background())
	assert.Equal(t, StateExpired, res.State)
	assert.Zero(t, env.tokenHits.Load())

	sess, err := env.client.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestPoll_NoSession(t *testing.T) {
	env := newTestEnv(t)
	res := env.client.Poll(context.Background())
	assert.Equal(t, StateIdle, res.State)
	assert.Equal(t, "no_session", res.ErrorCode)
	assert.Zero(t, env.tokenHits.Load())
}

func TestPoll_Pending(t *testing.T) {
	env := newTestEnv(t)
	env.seedSession(t, time.Now().Add(time.Minute))
	env.token = func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, deviceGrantType, r.Form.Get("grant_type"))
		assert.Equal(t, "dev-1", r.Form.Get("device_code"))
		_, _ = w.Write([]byte(`{"error":"authorization_pending"}`))
	}

	res := env.client.Poll(context.Background())
	assert.Equal(t, StateAwaiting, res.State)
	assert.Equal(t, SignalPending, res.Signal)
}

func TestPoll_SlowDown(t *testing.T) {
	env := newTestEnv(t)
	env.seedSession(t, time.Now().Add(time.Minute))
	env.token = respond(`{"error":"slow_down","interval":10}`)

	res := env.client.Poll(context.Background())
	assert.Equal(t, StateAwaiting, res.State)
	assert.Equal(t, SignalSlowDown, res.Signal)
	assert.Equal(t, 10*time.Second, res.Interval())

	sess, _ := env.client.Session(context.Background())
	require.NotNil(t, sess)
	assert.Equal(t, 10, sess.IntervalSeconds)
	assert.Equal(t, int32(1), env.tokenHits.Load())
}

func TestPoll_SlowDownWithoutInterval(t *testing.T) {
	env := newTestEnv(t)
	env.seedSession(t, time.Now().Add(time.Minute))
	env.token = respond(`{"error":"slow_down"}`)

	res := env.client.Poll(context.Background())
	assert.Equal(t, 10, res.IntervalSeconds)
}

func TestPoll_TerminalErrors(t *testing.T) {
	tests := []struct {
		body        string
		state       State
		code        string
		msg         string
		keepSession bool
	}{
		{`{"error":"expired_token"}`, StateExpired, "expired_token", "expired", false},
		{`{"error":"access_denied"}`, StateDenied, "access_denied", "denied", false},
		{`{"error":"device_flow_disabled"}`, StateError, "device_flow_disabled", "Enable Device Flow", false},
		{`{"error":"incorrect_client_credentials","error_description":"bad id"}`, StateError, "incorrect_client_credentials", "bad id", true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			env := newTestEnv(t)
			env.seedSession(t, time.Now().Add(time.Minute))
			env.token = respond(tt.body)

			res := env.client.Poll(context.Background())
			assert.Equal(t, tt.state, res.State)
			assert.Equal(t, tt.code, res.ErrorCode)
			assert.Contains(t, res.Message, tt.msg)

			sess, err := env.client.Session(context.Background())
			require.NoError(t, err)
			if tt.keepSession {
				require.NotNil(t, sess)
				assert.Equal(t, "dev-1", sess.DeviceCode)
			} else {
				assert.Nil(t, sess)
			}
		})
	}
}

func TestPoll_Authorized(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, WithClock(func() time.Time { return now }))
	env.seedSession(t, now.Add(time.Minute))
	env.token = respond(`{"access_token":"gho_abcdef","token_type":"bearer","scope":"gist","expires_in":28800,"refresh_token":"ghr_xyz","refresh_token_expires_in":15897600}`)
	env.user = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_abcdef", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"login":"octo","name":"Octo Cat","avatar_url":"https://avatars.example/octo"}`))
	}

	res := env.client.Poll(context.Background())
	require.Equal(t, StateAuthorized, res.State, res.Message)
	assert.Equal(t, "octo", res.Username)
	assert.Equal(t, "Octo Cat", res.Name)

	rec, err := env.vault.LoadOAuth(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "gho_abcdef", rec.AccessToken)
	assert.Equal(t, "ghr_xyz", rec.RefreshToken)
	assert.Equal(t, now.UnixMilli(), rec.CreatedAt)
	assert.Equal(t, now.Add(8*time.Hour).UnixMilli(), rec.ExpiresAt)

	sess, _ := env.client.Session(context.Background())
	assert.Nil(t, sess)
}

func TestPoll_LateResponseAfterCancelIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	env.seedSession(t, time.Now().Add(time.Minute))
	env.token = func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, env.client.Cancel(context.Background()))
		_, _ = w.Write([]byte(`{"access_token":"late-token","token_type":"bearer"}`))
	}

	res := env.client.Poll(context.Background())
	assert.Equal(t, SignalCancelled, res.Signal)

	ok, err := env.client.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoll_RejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	env.seedSession(t, time.Now().Add(time.Minute))
	entered := make(chan struct{})
	release := make(chan struct{})
	env.token = func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte(`{"error":"authorization_pending"}`))
	}

	done := make(chan PollResult)
	go func() { done <- env.client.Poll(context.Background()) }()
	<-entered

	second := env.client.Poll(context.Background())
	assert.Equal(t, SignalInFlight, second.Signal)

	close(release)
	first := <-done
	assert.Equal(t, SignalPending, first.Signal)
	assert.Equal(t, int32(1), env.tokenHits.Load())
}

func TestPoll_TransportErrorKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedSession(t, time.Now().Add(time.Minute))
	env.token = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}

	res := env.client.Poll(context.Background())
	assert.Equal(t, StateError, res.State)

	sess, _ := env.client.Session(context.Background())
	assert.NotNil(t, sess)
}
