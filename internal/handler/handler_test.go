package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/handler"
	"github.com/sakif/stash/internal/metrics"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/prefs"
	"github.com/sakif/stash/internal/repository/memory"
	"github.com/sakif/stash/internal/service"
	"github.com/sakif/stash/internal/store"
)

// =========================================================================
// HELPERS
// =========================================================================

type testAPI struct {
	router  http.Handler
	tokens  *auth.TokenService
	metrics *metrics.Metrics
	db      *memory.DB
}

func newTestAPI(t *testing.T, allowGuest bool) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	db := memory.New()
	m := metrics.New()
	authSvc := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	owners := handler.NewOwners(store.NewManager(db, logger), db, db, notify.Discard{}, allowGuest, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		handler.NewAuthHandler(authSvc, tokens, nil, false, logger).Routes(r)
		handler.NewInventoryHandler(owners, m, logger).Routes(r)
	})
	return &testAPI{router: r, tokens: tokens, metrics: m, db: db}
}

// do sends body (marshalled when not a string) with an optional session
// cookie and returns the recorder.
func (a *testAPI) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) signup(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/auth/signup", service.Credentials{Email: email, Password: "password1"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return sessionCookie(t, rr)
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out), rr.Body.String())
	return out
}

func ptr[T any](v T) *T { return &v }

// =========================================================================
// AUTH
// =========================================================================

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "null", rr.Body.String())

	cookie := api.signup(t, "Ann@Example.com")
	assert.True(t, cookie.HttpOnly)

	rr = api.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[model.User](t, rr)
	assert.Equal(t, "ann@example.com", me.Email)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = api.do(t, http.MethodPost, "/api/auth/signup", service.Credentials{Email: "ann@example.com", Password: "password1"}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/auth/login", service.Credentials{Email: "ann@example.com", Password: "wrong-pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decode[handler.ErrorResponse](t, rr).Error)

	rr = api.do(t, http.MethodPost, "/api/auth/login", service.Credentials{Email: "ann@example.com", Password: "password1"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, sessionCookie(t, rr).Value)

	rr = api.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	cleared := sessionCookie(t, rr)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestSignupValidation(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodPost, "/api/auth/signup", service.Credentials{Email: "not-an-email", Password: "password1"}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Fields, "email")

	rr = api.do(t, http.MethodPost, "/api/auth/signup", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMeWithTokenForMissingUser(t *testing.T) {
	api := newTestAPI(t, true)
	token, err := api.tokens.Generate("ghost")
	require.NoError(t, err)

	rr := api.do(t, http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: auth.CookieName, Value: token})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "null", rr.Body.String())
}

// =========================================================================
// OWNERSHIP
// =========================================================================

func TestGuestAccess(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		api := newTestAPI(t, true)
		rr := api.do(t, http.MethodPost, "/api/items", model.ItemInput{Name: "Lamp"}, nil)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, model.GuestUserID, decode[model.Item](t, rr).UserID)
	})

	t.Run("disabled", func(t *testing.T) {
		api := newTestAPI(t, false)
		rr := api.do(t, http.MethodGet, "/api/items", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUsersAreIsolated(t *testing.T) {
	api := newTestAPI(t, false)
	ann := api.signup(t, "ann@example.com")
	bob := api.signup(t, "bob@example.com")

	rr := api.do(t, http.MethodPost, "/api/items", model.ItemInput{Name: "Drill"}, ann)
	require.Equal(t, http.StatusCreated, rr.Code)
	item := decode[model.Item](t, rr)

	rr = api.do(t, http.MethodGet, "/api/items/"+item.ID, nil, bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/items", nil, bob)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[model.Page[model.Item]](t, rr).Total)
}

// =========================================================================
// ADDRESSES
// =========================================================================

func TestAddressCRUD(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodPost, "/api/addresses", model.AddressInput{Label: "Home", UserID: "someone-else"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	home := decode[model.Address](t, rr)
	assert.Equal(t, "Home", home.Label)
	assert.Equal(t, model.GuestUserID, home.UserID)

	rr = api.do(t, http.MethodPut, "/api/addresses/"+home.ID, model.AddressPatch{Label: ptr("Flat")}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Flat", decode[model.Address](t, rr).Label)

	rr = api.do(t, http.MethodPost, "/api/addresses/"+home.ID+"/share", model.ShareRequest{Email: "Bob@Example.com"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"bob@example.com"}, decode[model.Address](t, rr).SharedWith)

	rr = api.do(t, http.MethodPost, "/api/addresses/"+home.ID+"/share", model.ShareRequest{Email: "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/addresses/"+home.ID+"/unshare", model.ShareRequest{Email: "bob@example.com"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[model.Address](t, rr).SharedWith)

	rr = api.do(t, http.MethodGet, "/api/addresses?page=1&pageSize=10", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[model.Page[model.Address]](t, rr).Total)

	rr = api.do(t, http.MethodDelete, "/api/addresses/"+home.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/addresses/"+home.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error)

	rr = api.do(t, http.MethodPut, "/api/addresses/missing", model.AddressPatch{Label: ptr("x")}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/addresses?page=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =========================================================================
// ITEMS
// =========================================================================

func TestItemLifecycle(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodPost, "/api/addresses", model.AddressInput{Label: "Garage"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	garage := decode[model.Address](t, rr)

	rr = api.do(t, http.MethodPost, "/api/items", model.ItemInput{
		Name:               "Cordless drill",
		AddressID:          garage.ID,
		PurchasePriceCents: ptr[int64](8999),
		Tags:               []string{"tools"},
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	drill := decode[model.Item](t, rr)
	assert.Equal(t, garage.ID, drill.AddressID)

	rr = api.do(t, http.MethodGet, "/api/items/"+drill.ID, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Cordless drill", decode[model.Item](t, rr).Name)

	rr = api.do(t, http.MethodPut, "/api/items/"+drill.ID, `{"addressId":null,"currency":"USD"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[model.Item](t, rr)
	assert.True(t, updated.Unlocated())
	assert.Equal(t, "USD", updated.Currency)
	assert.Equal(t, "Cordless drill", updated.Name)

	rr = api.do(t, http.MethodPut, "/api/items/"+drill.ID, `{"nmae":"typo"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/items?addressId=", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[model.Page[model.Item]](t, rr).Total)

	rr = api.do(t, http.MethodGet, "/api/items?addressId="+garage.ID, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[model.Page[model.Item]](t, rr).Total)

	rr = api.do(t, http.MethodDelete, "/api/items/"+drill.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/items/"+drill.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateItemValidationFields(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodPost, "/api/items", model.ItemInput{Name: " ", PurchasePriceCents: ptr[int64](-5)}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "purchasePriceCents")
}

func TestBulkOperations(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodPost, "/api/addresses", model.AddressInput{Label: "Attic"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	attic := decode[model.Address](t, rr)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rr := api.do(t, http.MethodPost, "/api/items", model.ItemInput{Name: name}, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
		ids = append(ids, decode[model.Item](t, rr).ID)
	}

	rr = api.do(t, http.MethodPost, "/api/items/bulk-move", model.MoveRequest{IDs: ids[:2], AddressID: &attic.ID}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodGet, "/api/items?addressId="+attic.ID, nil, nil)
	assert.Equal(t, 2, decode[model.Page[model.Item]](t, rr).Total)

	rr = api.do(t, http.MethodPost, "/api/items/bulk-move", `{"ids":["`+ids[0]+`"],"addressId":null}`, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/items?addressId="+attic.ID, nil, nil)
	assert.Equal(t, 1, decode[model.Page[model.Item]](t, rr).Total)

	rr = api.do(t, http.MethodPost, "/api/items/bulk-move", model.MoveRequest{IDs: ids, AddressID: ptr("missing")}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	writes := api.db.Writes()
	rr = api.do(t, http.MethodPost, "/api/items/bulk-delete", model.BulkRequest{IDs: ids[1:]}, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, writes+1, api.db.Writes())

	rr = api.do(t, http.MethodGet, "/api/items", nil, nil)
	assert.Equal(t, 1, decode[model.Page[model.Item]](t, rr).Total)

	scrape := httptest.NewRecorder()
	api.metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `stash_inventory_mutations_total{op="item.bulk_delete"} 1`)
}

func TestHugePageNumbersAreEmpty(t *testing.T) {
	api := newTestAPI(t, true)
	rr := api.do(t, http.MethodPost, "/api/items", model.ItemInput{Name: "Lamp"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	for _, path := range []string{
		"/api/items?page=184467440737095518",
		"/api/items/view?page=184467440737095518",
		"/api/addresses?page=46116860184273881&pageSize=200",
	} {
		rr := api.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), `"items":[]`, path)
	}
}

func TestView(t *testing.T) {
	api := newTestAPI(t, true)
	for _, in := range []model.ItemInput{
		{Name: "Kettle", PurchasePriceCents: ptr[int64](2500), Tags: []string{"kitchen"}},
		{Name: "Toaster", PurchasePriceCents: ptr[int64](4000), Tags: []string{"kitchen"}},
		{Name: "Sofa", PurchasePriceCents: ptr[int64](50000)},
		{Name: "Poster"},
	} {
		rr := api.do(t, http.MethodPost, "/api/items", in, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	q := url.Values{}
	q.Set("sort", "price-desc")
	q.Set("tag", "kitchen")
	rr := api.do(t, http.MethodGet, "/api/items/view?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decode[service.View](t, rr)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Toaster", view.Items[0].Name)
	assert.Equal(t, 4, view.Total)
	assert.Equal(t, int64(2500), view.Bounds.Min)
	assert.Equal(t, int64(50000), view.Bounds.Max)

	rr = api.do(t, http.MethodGet, "/api/items/view?sort=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/items/view?minPrice=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =========================================================================
// PREFERENCES
// =========================================================================

func TestPreferences(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodGet, "/api/preferences", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, prefs.Defaults(), decode[prefs.Preferences](t, rr))

	rr = api.do(t, http.MethodPut, "/api/preferences", prefs.Preferences{ViewMode: prefs.ViewGrid, Sort: "bogus", MinPrice: ptr[int64](100)}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/preferences", nil, nil)
	got := decode[prefs.Preferences](t, rr)
	assert.Equal(t, prefs.ViewGrid, got.ViewMode)
	assert.Equal(t, prefs.Defaults().Sort, got.Sort)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, int64(100), *got.MinPrice)

	cookie := api.signup(t, "ann@example.com")
	rr = api.do(t, http.MethodGet, "/api/preferences", nil, cookie)
	assert.Equal(t, prefs.Defaults(), decode[prefs.Preferences](t, rr), "preferences are per owner")
}
