package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holmwood/idcheck/internal/idcheck/audit"
	"github.com/holmwood/idcheck/internal/idcheck/domain"
	"github.com/holmwood/idcheck/internal/idcheck/service"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/internal/idcheck/store/drivers/sqlite"
	"github.com/holmwood/idcheck/pkg/cryptox"
	"github.com/holmwood/idcheck/pkg/idx"
)

const (
	testClientID     = "passport-web"
	testClientSecret = "correct-horse-battery"
	testRedirectURI  = "https://relying-party.example/callback"
)

type handlerFixture struct {
	store    store.Store
	exchange *service.ExchangeService
	response *service.ClientResponseService
	clients  *service.ClientAuthenticator
}

type discardSink struct{}

func (discardSink) Send(context.Context, audit.Event) error { return nil }

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hash, err := cryptox.HashSecret(testClientSecret)
	require.NoError(t, err)

	emitter := audit.NewEmitter(discardSink{}, time.Second, nil)
	clients := &service.ClientAuthenticator{SecretHashes: map[string]string{testClientID: hash}}

	return &handlerFixture{
		store: st,
		exchange: &service.ExchangeService{
			Store:    st,
			Clients:  clients,
			Audit:    emitter,
			CodeTTL:  10 * time.Minute,
			TokenTTL: time.Hour,
		},
		response: &service.ClientResponseService{Store: st, Audit: emitter},
		clients:  clients,
	}
}

// seedCode stores a session and unexchanged code, returning the plaintext
// code.
func (f *handlerFixture) seedCode(t *testing.T, createdAt time.Time) (string, domain.Session) {
	t.Helper()
	ctx := context.Background()

	session := domain.Session{
		ID: idx.New().String(),
		AuthParams: domain.AuthParams{
			RedirectURI: testRedirectURI,
			State:       "client-state",
			ClientID:    testClientID,
		},
		ResourceID:   idx.New().String(),
		AttemptCount: 1,
		CreatedAt:    createdAt,
	}
	require.NoError(t, f.store.Sessions().CreateSession(ctx, session))

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)

	record := domain.AuthorizationCode{
		ID:         idx.New().String(),
		CodeHash:   cryptox.FingerprintToken(code),
		SessionID:  session.ID,
		ResourceID: session.ResourceID,
		CreatedAt:  createdAt,
	}
	require.NoError(t, f.store.AuthorizationCodes().CreateAuthorizationCode(ctx, record))

	return code, session
}

func postForm(h nethttp.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(nethttp.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
