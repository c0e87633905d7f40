package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwala/cartwala/internal/domain/cart"
	"github.com/cartwala/cartwala/internal/domain/chat"
	"github.com/cartwala/cartwala/internal/domain/credential"
	"github.com/cartwala/cartwala/internal/domain/product"
	"github.com/cartwala/cartwala/internal/domain/session"
	"github.com/cartwala/cartwala/internal/domain/user"
	"github.com/cartwala/cartwala/pkg/classifier"
	"github.com/cartwala/cartwala/pkg/secret"
)

// ---- in-memory collaborators ----

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Warn(msg string, keysAndValues ...interface{})  {}

// storedSession mirrors what the Postgres repository persists: flow data
// lives as encoded JSON, so sessions read back exactly what a real
// marshal/unmarshal round-trip would produce, not the in-memory struct
type storedSession struct {
	flow session.FlowKind
	step session.FlowStep
	data []byte
}

type fakeSessions struct {
	store  map[string]storedSession
	getErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{store: make(map[string]storedSession)}
}

func (f *fakeSessions) Get(ctx context.Context, userID string) (*session.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.store[userID]
	if !ok {
		return session.Empty(userID), nil
	}
	s := &session.Session{UserID: userID, Flow: row.flow, Step: row.step}
	if len(row.data) > 0 {
		if err := json.Unmarshal(row.data, &s.Data); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (f *fakeSessions) Save(ctx context.Context, s *session.Session) error {
	raw, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}
	f.store[s.UserID] = storedSession{flow: s.Flow, step: s.Step, data: raw}
	return nil
}

func (f *fakeSessions) Clear(ctx context.Context, userID string) error {
	return f.Save(ctx, session.Empty(userID))
}

type fakeUsers struct {
	store map[string]*user.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{store: make(map[string]*user.User)}
}

func (f *fakeUsers) Create(ctx context.Context, u *user.User) error {
	f.store[u.ID] = u
	return nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*user.User, error) {
	if u, ok := f.store[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) FindByWaNumber(ctx context.Context, waNumber string) (*user.User, error) {
	for _, u := range f.store {
		if u.WaNumber == waNumber {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) Update(ctx context.Context, u *user.User) error {
	f.store[u.ID] = u
	return nil
}

type fakeCarts struct {
	carts []*cart.Cart
}

func (f *fakeCarts) Create(ctx context.Context, c *cart.Cart) error {
	f.carts = append(f.carts, c)
	return nil
}

func (f *fakeCarts) FindActiveByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	for _, c := range f.carts {
		if c.UserID == userID && c.Status == cart.StatusActive {
			return c, nil
		}
	}
	return nil, cart.ErrNotFound
}

func (f *fakeCarts) AddItem(ctx context.Context, item *cart.Item) error {
	for _, c := range f.carts {
		if c.ID == item.CartID {
			c.Items = append(c.Items, *item)
			return nil
		}
	}
	return cart.ErrNotFound
}

func (f *fakeCarts) RemoveItemByName(ctx context.Context, cartID, name string) (int, error) {
	for _, c := range f.carts {
		if c.ID != cartID {
			continue
		}
		kept := c.Items[:0]
		removed := 0
		for _, it := range c.Items {
			if strings.EqualFold(it.Name, name) {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		c.Items = kept
		return removed, nil
	}
	return 0, nil
}

func (f *fakeCarts) UpdateItem(ctx context.Context, item *cart.Item) error {
	for _, c := range f.carts {
		for i := range c.Items {
			if c.Items[i].ID == item.ID {
				c.Items[i] = *item
				return nil
			}
		}
	}
	return nil
}

func (f *fakeCarts) UpdateStatus(ctx context.Context, cartID string, status cart.Status) error {
	for _, c := range f.carts {
		if c.ID == cartID {
			c.Status = status
			return nil
		}
	}
	return cart.ErrNotFound
}

func (f *fakeCarts) ClearByUser(ctx context.Context, userID string) error {
	for _, c := range f.carts {
		if c.UserID == userID && c.Status == cart.StatusActive {
			c.Status = cart.StatusAbandoned
		}
	}
	return nil
}

type fakeCreds struct {
	store   map[string]*credential.Credential
	saveErr error
}

func newFakeCreds() *fakeCreds {
	return &fakeCreds{store: make(map[string]*credential.Credential)}
}

func credKey(userID, retailer string) string { return userID + "|" + retailer }

func (f *fakeCreds) Save(ctx context.Context, c *credential.Credential) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.store[credKey(c.UserID, c.Retailer)] = c
	return nil
}

func (f *fakeCreds) FindByUserAndRetailer(ctx context.Context, userID, retailer string) (*credential.Credential, error) {
	if c, ok := f.store[credKey(userID, retailer)]; ok {
		return c, nil
	}
	return nil, credential.ErrNotFound
}

func (f *fakeCreds) ListByUser(ctx context.Context, userID string) ([]*credential.Credential, error) {
	var out []*credential.Credential
	for _, c := range f.store {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCreds) CountByUser(ctx context.Context, userID string) (int, error) {
	creds, _ := f.ListByUser(ctx, userID)
	return len(creds), nil
}

func (f *fakeCreds) DeleteByUser(ctx context.Context, userID string) error {
	for k, c := range f.store {
		if c.UserID == userID {
			delete(f.store, k)
		}
	}
	return nil
}

type fakeProducts struct {
	catalog map[string][]product.Suggestion
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{catalog: make(map[string][]product.Suggestion)}
}

func (f *fakeProducts) add(searchName string, s product.Suggestion) {
	key := strings.ToLower(searchName)
	f.catalog[key] = append(f.catalog[key], s)
}

func (f *fakeProducts) SearchByName(ctx context.Context, name string, limit int) ([]product.Suggestion, error) {
	suggestions := f.catalog[strings.ToLower(name)]
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (f *fakeProducts) FindByID(ctx context.Context, id string) (*product.Suggestion, error) {
	for _, list := range f.catalog {
		for _, s := range list {
			if s.Product.ID == id {
				return &s, nil
			}
		}
	}
	return nil, errors.New("product not found")
}

func (f *fakeProducts) PricesForRetailers(ctx context.Context, productID string, retailers []string) ([]product.Price, error) {
	s, err := f.FindByID(ctx, productID)
	if err != nil {
		return nil, nil
	}
	if retailers == nil {
		return s.Prices, nil
	}
	allowed := make(map[string]bool, len(retailers))
	for _, r := range retailers {
		allowed[r] = true
	}
	var out []product.Price
	for _, p := range s.Prices {
		if allowed[p.Retailer] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeHistory struct {
	messages []*chat.Message
}

func (f *fakeHistory) SaveMessage(ctx context.Context, m *chat.Message) error {
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeHistory) GetUserHistory(ctx context.Context, userID string, limit, offset int) ([]chat.Message, error) {
	return nil, nil
}

func (f *fakeHistory) DeleteUserHistory(ctx context.Context, userID string) error {
	f.messages = nil
	return nil
}

func (f *fakeHistory) CountUserMessages(ctx context.Context, userID string) (int, error) {
	return len(f.messages), nil
}

type fakeClassifier struct {
	intent *classifier.Intent
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*classifier.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.intent != nil {
		return f.intent, nil
	}
	return &classifier.Intent{Tag: classifier.TagUnknown}, nil
}

type otpRequest struct {
	retailer string
	phone    string
	code     string
}

type fakeOTP struct {
	requests []otpRequest
}

func (f *fakeOTP) RequestOTP(ctx context.Context, retailerName, phone, code string) error {
	f.requests = append(f.requests, otpRequest{retailer: retailerName, phone: phone, code: code})
	return nil
}

// ---- fixture ----

type fixture struct {
	sessions   *fakeSessions
	users      *fakeUsers
	carts      *fakeCarts
	creds      *fakeCreds
	products   *fakeProducts
	history    *fakeHistory
	classifier *fakeClassifier
	otp        *fakeOTP
	box        *secret.Box
	resolver   *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	f := &fixture{
		sessions:   newFakeSessions(),
		users:      newFakeUsers(),
		carts:      &fakeCarts{},
		creds:      newFakeCreds(),
		products:   newFakeProducts(),
		history:    &fakeHistory{},
		classifier: &fakeClassifier{},
		otp:        &fakeOTP{},
		box:        secret.NewBox(key),
	}
	f.resolver = NewResolver(
		noopLogger{}, f.sessions, f.users, f.carts, f.creds,
		f.products, f.history, f.classifier, f.otp, f.box,
	)
	return f
}

func (f *fixture) addUser(t *testing.T, confirmed bool) *user.User {
	t.Helper()
	u, err := user.NewUser("919876543210", "Asha")
	require.NoError(t, err)
	if confirmed {
		u.SetAddress("12 MG Road, Bangalore")
		u.ConfirmAddress()
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) connectRetailer(t *testing.T, userID, name string) {
	t.Helper()
	c, err := credential.New(userID, name, "+919876543210", credential.LoginTypePhone, nil)
	require.NoError(t, err)
	require.NoError(t, f.creds.Save(context.Background(), c))
}

func (f *fixture) addCatalog(name, id string, pricesByRetailer map[string]int64) {
	var prices []product.Price
	for r, paise := range pricesByRetailer {
		prices = append(prices, product.Price{ProductID: id, Retailer: r, PricePaise: paise, InStock: true})
	}
	f.products.add(name, product.Suggestion{
		Product: product.Product{ID: id, Name: name, Unit: "500 g"},
		Prices:  prices,
	})
}

// ---- resets ----

func TestClearSessionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		reply := f.resolver.Handle(ctx, u.ID, "clear session")
		assert.Equal(t, msgSessionCleared, reply)
	}

	stored, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active())
}

func TestClearAllWipesCartAndCredentials(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")
	ctx := context.Background()

	c := cart.NewCart(u.ID)
	require.NoError(t, f.carts.Create(ctx, c))
	require.NoError(t, f.history.SaveMessage(ctx, chat.NewMessage(u.ID, chat.DirectionInbound, "hi")))

	reply := f.resolver.Handle(ctx, u.ID, "clear all")
	assert.Equal(t, msgAllCleared, reply)

	count, _ := f.creds.CountByUser(ctx, u.ID)
	assert.Zero(t, count)
	_, err := f.carts.FindActiveByUser(ctx, u.ID)
	assert.ErrorIs(t, err, cart.ErrNotFound)
	remaining, _ := f.history.CountUserMessages(ctx, u.ID)
	assert.Zero(t, remaining)
}

func TestStaleSessionIsClearedSilently(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	// a flow kind with no valid step, as an interrupted flow leaves it
	f.sessions.store[u.ID] = storedSession{flow: session.FlowAuth, step: session.StepNone}

	reply := f.resolver.Handle(ctx, u.ID, "help")
	assert.Equal(t, msgHelp, reply)

	stored, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active())
}

// ---- auth flow ----

func TestAuthPhoneBranch(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	reply := f.resolver.Handle(ctx, u.ID, "login zepto")
	assert.Equal(t, msgAskMethod, reply)

	reply = f.resolver.Handle(ctx, u.ID, "phone")
	assert.Contains(t, reply, "phone number")

	// spacing and dashes are stripped before validation
	reply = f.resolver.Handle(ctx, u.ID, "+91 98765-43210")
	assert.Equal(t, msgOTPSent("+919876543210"), reply)
	require.Len(t, f.otp.requests, 1)
	assert.Equal(t, "zepto", f.otp.requests[0].retailer)
	assert.Len(t, f.otp.requests[0].code, 6)

	reply = f.resolver.Handle(ctx, u.ID, "123456")
	assert.Equal(t, msgAuthDone("zepto"), reply)

	cred, err := f.creds.FindByUserAndRetailer(ctx, u.ID, "zepto")
	require.NoError(t, err)
	assert.Equal(t, credential.LoginTypePhone, cred.LoginType)
	assert.Equal(t, "+919876543210", cred.LoginID)

	// auth terminal leaves no session state behind
	stored, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active())
	assert.Empty(t, stored.Data.Retailer)
	assert.Empty(t, stored.Data.Phone)
}

func TestAuthEmailBranchSealsPassword(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "login blinkit")
	f.resolver.Handle(ctx, u.ID, "email")

	reply := f.resolver.Handle(ctx, u.ID, "asha@example.com")
	assert.Equal(t, msgAskPassword, reply)

	reply = f.resolver.Handle(ctx, u.ID, "s3cret-pass")
	assert.Equal(t, msgAuthDone("blinkit"), reply)

	cred, err := f.creds.FindByUserAndRetailer(ctx, u.ID, "blinkit")
	require.NoError(t, err)
	assert.Equal(t, credential.LoginTypeEmail, cred.LoginType)
	assert.NotEqual(t, []byte("s3cret-pass"), cred.Secret)

	opened, err := f.box.Open(cred.Secret)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", string(opened))
}

func TestAuthInvalidInputRepromptsInPlace(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "login zepto")
	f.resolver.Handle(ctx, u.ID, "phone")

	reply := f.resolver.Handle(ctx, u.ID, "not a number")
	assert.Equal(t, msgInvalidPhone, reply)

	stored, _ := f.sessions.Get(ctx, u.ID)
	assert.Equal(t, session.FlowAuth, stored.Flow)
	assert.Equal(t, session.StepPhoneInput, stored.Step)
}

func TestAuthUnsupportedRetailer(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)

	reply := f.resolver.Handle(context.Background(), u.ID, "login dmart")
	assert.Equal(t, msgUnsupportedRetailer("dmart"), reply)
}

func TestAuthAlreadyConnected(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")

	reply := f.resolver.Handle(context.Background(), u.ID, "login zepto")
	assert.Equal(t, msgAlreadyConnected("zepto"), reply)
}

func TestResendOTPOutsideAuth(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)

	reply := f.resolver.Handle(context.Background(), u.ID, "resend")
	assert.Equal(t, msgNoActiveOTP, reply)
}

func TestMethodTokenOutsideAuthGoesToClassifier(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.classifier.intent = &classifier.Intent{Tag: classifier.TagUnknown}

	reply := f.resolver.Handle(context.Background(), u.ID, "phone")
	assert.Equal(t, msgDidNotUnderstand, reply)
}

func TestNewFlowReplacesFlowDataWholly(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")
	f.addCatalog("milk", "p-milk", map[string]int64{"zepto": 6500})
	ctx := context.Background()

	// park the session mid-auth, then start an order
	f.resolver.Handle(ctx, u.ID, "login blinkit")
	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagOrder,
		Items: []classifier.Item{{Name: "milk"}},
	}
	f.resolver.Handle(ctx, u.ID, "I need milk please")

	stored, _ := f.sessions.Get(ctx, u.ID)
	assert.Equal(t, session.FlowOrder, stored.Flow)
	assert.Empty(t, stored.Data.Retailer, "auth flow data must not leak into the order flow")
}

// ---- order flow ----

func TestOrderWithAddressSavesAddressFirst(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, false)
	ctx := context.Background()

	// no connected retailer: the address still gets saved
	f.classifier.intent = &classifier.Intent{
		Tag:     classifier.TagOrder,
		Items:   []classifier.Item{{Name: "milk"}},
		Address: "12 MG Road, Bangalore",
	}

	reply := f.resolver.Handle(ctx, u.ID, "Order milk to 12 MG Road, Bangalore")
	assert.Equal(t, msgAddressSaved("12 MG Road, Bangalore"), reply)

	stored, _ := f.users.FindByID(ctx, u.ID)
	assert.Equal(t, "12 MG Road, Bangalore", stored.Address)
	assert.False(t, stored.AddressConfirmed)
}

func TestOrderWithoutRetailerAsksToConnect(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagOrder,
		Items: []classifier.Item{{Name: "milk"}},
	}

	reply := f.resolver.Handle(context.Background(), u.ID, "order milk")
	assert.Equal(t, msgConnectFirst, reply)
}

func TestOrderWithoutConfirmedAddressAsksForOne(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, false)
	f.connectRetailer(t, u.ID, "zepto")
	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagOrder,
		Items: []classifier.Item{{Name: "milk"}},
	}

	reply := f.resolver.Handle(context.Background(), u.ID, "order milk")
	assert.Equal(t, msgAskAddress, reply)
}

func TestOrderSelectionWalk(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")
	f.addCatalog("milk", "p-milk", map[string]int64{"zepto": 6500})
	f.addCatalog("bread", "p-bread", map[string]int64{"zepto": 4500})
	ctx := context.Background()

	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagOrder,
		Items: []classifier.Item{{Name: "milk"}, {Name: "bread"}},
	}
	reply := f.resolver.Handle(ctx, u.ID, "Order milk and bread")
	assert.Contains(t, reply, "For milk:")
	assert.Contains(t, reply, "For bread:")

	reply = f.resolver.Handle(ctx, u.ID, "1 for milk")
	assert.Equal(t, msgSelectionRecorded("milk"), reply)

	// picking an item that was never requested
	reply = f.resolver.Handle(ctx, u.ID, "1 for eggs")
	assert.Equal(t, msgItemNotRequested("eggs"), reply)

	// out-of-range pick
	reply = f.resolver.Handle(ctx, u.ID, "9 for bread")
	assert.Equal(t, msgSelectionOutOfRange("bread", 1), reply)

	reply = f.resolver.Handle(ctx, u.ID, "add selected")
	assert.Equal(t, msgAddedSelected(2), reply)

	active, err := f.carts.FindActiveByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active.Items, 2)
	assert.Equal(t, "p-milk", active.Items[0].ProductID)
	assert.Empty(t, active.Items[1].ProductID, "unpicked items fall back to a bare line")

	stored, _ := f.sessions.Get(ctx, u.ID)
	assert.False(t, stored.Active())
}

func TestBulkSelection(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")
	f.addCatalog("milk", "p-milk", map[string]int64{"zepto": 6500})
	f.addCatalog("bread", "p-bread", map[string]int64{"zepto": 4500})
	ctx := context.Background()

	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagOrder,
		Items: []classifier.Item{{Name: "milk"}, {Name: "bread"}},
	}
	f.resolver.Handle(ctx, u.ID, "Order milk and bread")

	reply := f.resolver.Handle(ctx, u.ID, "all 1")
	assert.Equal(t, msgBulkRecorded(1, 2), reply)

	stored, _ := f.sessions.Get(ctx, u.ID)
	assert.Equal(t, "p-milk", stored.Data.Selections["milk"])
	assert.Equal(t, "p-bread", stored.Data.Selections["bread"])
}

func TestAddSelectedOutsideOrderFlow(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)

	reply := f.resolver.Handle(context.Background(), u.ID, "add selected")
	assert.Equal(t, msgNoItemsSelected, reply)
}

// ---- checkout flow ----

func checkoutFixture(t *testing.T) (*fixture, *user.User) {
	t.Helper()
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")
	f.addCatalog("milk", "p-milk", map[string]int64{"zepto": 6500, "blinkit": 6200})
	f.addCatalog("bread", "p-bread", map[string]int64{"zepto": 4500})

	c := cart.NewCart(u.ID)
	require.NoError(t, f.carts.Create(context.Background(), c))
	for _, name := range []string{"milk", "bread"} {
		item, err := cart.NewItem(c.ID, name, 1)
		require.NoError(t, err)
		require.NoError(t, f.carts.AddItem(context.Background(), item))
	}
	return f, u
}

func TestCheckoutRequiresConnectedRetailer(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)

	reply := f.resolver.Handle(context.Background(), u.ID, "checkout")
	assert.Equal(t, msgConnectFirst, reply)
}

func TestCheckoutRequiresNonEmptyCart(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")

	reply := f.resolver.Handle(context.Background(), u.ID, "checkout")
	assert.Equal(t, msgCartEmpty, reply)
}

func TestCheckoutWalk(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	reply := f.resolver.Handle(ctx, u.ID, "checkout")
	assert.Contains(t, reply, "Item 1 of 2: milk")
	// only the connected retailer's price shows
	assert.Contains(t, reply, "zepto: ₹65.00")
	assert.NotContains(t, reply, "blinkit")

	// wrong item while the walk is on milk
	reply = f.resolver.Handle(ctx, u.ID, "zepto for bread")
	assert.Equal(t, msgWrongItem("milk"), reply)

	// unconnected retailer is refused
	reply = f.resolver.Handle(ctx, u.ID, "blinkit for milk")
	assert.Equal(t, msgRetailerNotConnected("blinkit"), reply)

	reply = f.resolver.Handle(ctx, u.ID, "zepto for milk")
	assert.Contains(t, reply, "Item 2 of 2: bread")

	reply = f.resolver.Handle(ctx, u.ID, "skip bread")
	assert.Contains(t, reply, "Here's your order:")
	assert.Contains(t, reply, "zepto: milk")
	assert.Contains(t, reply, "Skipped: bread")
}

func TestFirstPickAfterReloadedSession(t *testing.T) {
	// flow entry writes an empty selections map, which the JSON encoding
	// of the stored session drops; the first pick on the next message
	// must still land instead of panicking on a nil map
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")
	reloaded, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.Data.Selections)

	reply := f.resolver.Handle(ctx, u.ID, "zepto for milk")
	assert.Contains(t, reply, "Item 2 of 2: bread")

	stored, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "zepto", stored.Data.Selections["milk"])
}

func TestFirstNumericPickAfterReloadedSession(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.connectRetailer(t, u.ID, "zepto")
	f.addCatalog("milk", "p-milk", map[string]int64{"zepto": 6500})
	ctx := context.Background()

	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagOrder,
		Items: []classifier.Item{{Name: "milk"}},
	}
	f.resolver.Handle(ctx, u.ID, "Order milk")

	reloaded, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.Data.Selections)

	reply := f.resolver.Handle(ctx, u.ID, "1 for milk")
	assert.Equal(t, msgSelectionRecorded("milk"), reply)

	stored, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "p-milk", stored.Data.Selections["milk"])
}

func TestClearSessionMidCheckout(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")

	reply := f.resolver.Handle(ctx, u.ID, "clear session")
	assert.Equal(t, msgSessionCleared, reply)

	stored, err := f.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active())

	// the walk is gone; checkout syntax no longer applies
	reply = f.resolver.Handle(ctx, u.ID, "confirm order")
	assert.Equal(t, msgNoActiveCheckout, reply)
}

func TestConfirmOrderRefusedMidWalk(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")
	before, _ := f.sessions.Get(ctx, u.ID)

	reply := f.resolver.Handle(ctx, u.ID, "confirm order")
	assert.Equal(t, msgConfirmBeforeDone, reply)

	// the refusal leaves the walk exactly where it was
	after, _ := f.sessions.Get(ctx, u.ID)
	assert.Equal(t, before.Flow, after.Flow)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.Data.CurrentIndex, after.Data.CurrentIndex)
}

func TestConfirmOrderCompletesCheckout(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")
	f.resolver.Handle(ctx, u.ID, "zepto for milk")
	f.resolver.Handle(ctx, u.ID, "skip bread")

	reply := f.resolver.Handle(ctx, u.ID, "confirm order")
	assert.Contains(t, reply, "Order confirmed!")
	assert.Contains(t, reply, "zepto")

	// cart is ordered and the picked retailer landed on the line
	_, err := f.carts.FindActiveByUser(ctx, u.ID)
	assert.ErrorIs(t, err, cart.ErrNotFound)
	ordered := f.carts.carts[0]
	assert.Equal(t, cart.StatusOrdered, ordered.Status)
	assert.Equal(t, "zepto", ordered.Items[0].Retailer)
	assert.Empty(t, ordered.Items[1].Retailer)

	stored, _ := f.sessions.Get(ctx, u.ID)
	assert.False(t, stored.Active())
}

func TestConfirmOrderWithoutCheckout(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)

	reply := f.resolver.Handle(context.Background(), u.ID, "confirm order")
	assert.Equal(t, msgNoActiveCheckout, reply)
}

func TestEditCartRestartsWalkKeepingPicks(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")
	f.resolver.Handle(ctx, u.ID, "zepto for milk")

	reply := f.resolver.Handle(ctx, u.ID, "edit cart")
	assert.Contains(t, reply, "Item 1 of 2: milk")

	stored, _ := f.sessions.Get(ctx, u.ID)
	assert.Equal(t, "zepto", stored.Data.Selections["milk"])
	assert.Zero(t, stored.Data.CurrentIndex)
}

func TestCancelCheckoutKeepsCart(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")
	reply := f.resolver.Handle(ctx, u.ID, "cancel checkout")
	assert.Equal(t, msgCheckoutCancelled, reply)

	active, err := f.carts.FindActiveByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, active.Items, 2)
}

func TestNumericPickMidCheckoutReprompts(t *testing.T) {
	f, u := checkoutFixture(t)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "checkout")
	reply := f.resolver.Handle(ctx, u.ID, "1 for milk")
	assert.Equal(t, msgPickRetailerHint, reply)
}

// ---- address confirmation ----

func TestAddressConfirmationYes(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, false)
	u.SetAddress("12 MG Road, Bangalore")
	ctx := context.Background()

	yes := true
	f.classifier.intent = &classifier.Intent{Tag: classifier.TagAddressConfirmation, Confirmed: &yes}

	reply := f.resolver.Handle(ctx, u.ID, "yes")
	assert.Equal(t, msgAddressConfirmed(), reply)

	stored, _ := f.users.FindByID(ctx, u.ID)
	assert.True(t, stored.AddressConfirmed)
}

func TestAddressConfirmationNoClearsAddress(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, false)
	u.SetAddress("12 MG Road, Bangalore")
	ctx := context.Background()

	no := false
	f.classifier.intent = &classifier.Intent{Tag: classifier.TagAddressConfirmation, Confirmed: &no}

	reply := f.resolver.Handle(ctx, u.ID, "no")
	assert.Equal(t, msgAskAddress, reply)

	stored, _ := f.users.FindByID(ctx, u.ID)
	assert.Empty(t, stored.Address)
}

// ---- cart commands ----

func TestShowCartEmpty(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)

	reply := f.resolver.Handle(context.Background(), u.ID, "show cart")
	assert.Equal(t, msgCartEmpty, reply)
}

func TestAddAndRemoveItems(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagAddItem,
		Items: []classifier.Item{{Name: "milk", Quantity: 2}, {Name: "bread"}},
	}
	reply := f.resolver.Handle(ctx, u.ID, "add milk and bread")
	assert.Equal(t, msgItemsAdded([]string{"milk", "bread"}), reply)

	reply = f.resolver.Handle(ctx, u.ID, "show cart")
	assert.Contains(t, reply, "milk x2")
	assert.Contains(t, reply, "bread")

	f.classifier.intent = &classifier.Intent{
		Tag:   classifier.TagRemoveItem,
		Items: []classifier.Item{{Name: "bread"}, {Name: "eggs"}},
	}
	reply = f.resolver.Handle(ctx, u.ID, "remove bread and eggs")
	assert.Contains(t, reply, msgItemRemoved("bread"))
	assert.Contains(t, reply, msgItemNotInCart("eggs"))
}

func TestShowPricesBestPerItem(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.addCatalog("milk", "p-milk", map[string]int64{"zepto": 6500, "blinkit": 6200})
	ctx := context.Background()

	c := cart.NewCart(u.ID)
	require.NoError(t, f.carts.Create(ctx, c))
	item, err := cart.NewItem(c.ID, "milk", 1)
	require.NoError(t, err)
	require.NoError(t, f.carts.AddItem(ctx, item))

	reply := f.resolver.Handle(ctx, u.ID, "show prices")
	assert.Contains(t, reply, "milk: ₹62.00 at blinkit")
}

func TestSelectionSyntaxOutsideOrderWithEmptyCart(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.classifier.intent = &classifier.Intent{Tag: classifier.TagProductSelection}

	reply := f.resolver.Handle(context.Background(), u.ID, "the first one")
	assert.Equal(t, msgCartEmpty, reply)
}

// ---- error boundary ----

func TestCollaboratorFailureYieldsApology(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.sessions.getErr = errors.New("connection refused")

	reply := f.resolver.Handle(context.Background(), u.ID, "help")
	assert.Equal(t, msgApology, reply)
}

func TestAuthStorageFailureYieldsAccountSetup(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	ctx := context.Background()

	f.resolver.Handle(ctx, u.ID, "login zepto")
	f.resolver.Handle(ctx, u.ID, "phone")
	f.resolver.Handle(ctx, u.ID, "+919876543210")

	f.creds.saveErr = errors.New("failed to save retailer_credentials row: relation does not exist")
	reply := f.resolver.Handle(ctx, u.ID, "123456")
	assert.Equal(t, msgAccountSetup, reply)
}

func TestClassifierFailureYieldsApology(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, true)
	f.classifier.err = errors.New("api timeout")

	reply := f.resolver.Handle(context.Background(), u.ID, "some free text")
	assert.Equal(t, msgApology, reply)
}

// ---- location pins ----

func TestHandleLocationStoresPendingAddress(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, false)
	ctx := context.Background()

	reply := f.resolver.HandleLocation(ctx, u.ID, "14 Brigade Road, Bangalore")
	assert.Equal(t, msgAddressSaved("14 Brigade Road, Bangalore"), reply)

	stored, _ := f.users.FindByID(ctx, u.ID)
	assert.Equal(t, "14 Brigade Road, Bangalore", stored.Address)
	assert.False(t, stored.AddressConfirmed)
}
