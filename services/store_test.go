package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"terracafe/db"
	"terracafe/db/dbtest"
	"terracafe/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Seeded menu: 1 Café coado 13.00, 2 Café expresso 15.00, 3 Café Americano 13.00.
// Customizations: Leite de coco 3.00, Xarope de Caramelo 3.50.
const (
	seedCoado     = int64(1)
	seedExpresso  = int64(2)
	seedAmericano = int64(3)

	coco     = "Leite de coco"
	caramelo = "Xarope de Caramelo"
)

type storeSuite struct {
	suite.Suite

	stop     func()
	sessions SessionStore
	checkout *Checkout
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	suite.Run(t, new(storeSuite))
}

func (s *storeSuite) SetupSuite() {
	stop, err := dbtest.Start(s.T().Context())
	if err != nil {
		s.T().Skipf("postgres container unavailable: %v", err)
	}
	s.stop = stop
	s.sessions = NewMemorySessions(time.Hour)
	s.checkout = &Checkout{Payments: NewFakeProvider(0), VoucherCost: 50}
}

func (s *storeSuite) TearDownSuite() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *storeSuite) SetupTest() {
	s.Require().NoError(dbtest.Reset(s.T().Context()))
}

func (s *storeSuite) register() *models.User {
	u, err := Register(s.T().Context(), RegisterInput{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: "segredo123",
	})
	s.Require().NoError(err)
	return u
}

func (s *storeSuite) setPoints(userID int64, points int) {
	_, err := db.Pool.Exec(s.T().Context(), `UPDATE users SET loyalty_points = $1 WHERE id = $2`, points, userID)
	s.Require().NoError(err)
}

func (s *storeSuite) TestMenuSeedAndAvailability() {
	ctx := s.T().Context()

	drinks, err := ListDrinks(ctx, false)
	s.Require().NoError(err)
	s.Len(drinks, 5)

	_, err = UpdateDrink(ctx, seedAmericano, DrinkInput{Name: "Café Americano", Price: decimal.RequireFromString("13.00"), Category: models.CategoryBeverage})
	s.Require().NoError(err)

	drinks, err = ListDrinks(ctx, false)
	s.Require().NoError(err)
	s.Len(drinks, 4)
	all, err := ListDrinks(ctx, true)
	s.Require().NoError(err)
	s.Len(all, 5)

	_, err = BuildCartItem(ctx, CartLineInput{DrinkID: seedAmericano, Quantity: 1})
	s.ErrorIs(err, ErrUnknownDrink)

	_, err = UpdateDrink(ctx, seedAmericano, DrinkInput{Name: "Café Americano", Price: decimal.RequireFromString("13.00"), Available: true})
	s.Require().NoError(err)
}

func (s *storeSuite) TestDrinkCRUD() {
	ctx := s.T().Context()
	d, err := AddDrink(ctx, DrinkInput{Name: "Pão de queijo", Price: decimal.RequireFromString("5.00"), Category: models.CategoryFood, Available: true})
	s.Require().NoError(err)
	s.Equal(models.CategoryFood, d.Category)

	_, err = AddDrink(ctx, DrinkInput{Name: "Broken", Price: decimal.NewFromInt(-1)})
	s.ErrorIs(err, ErrInvalidInput)

	s.Require().NoError(DeleteDrink(ctx, d.ID))
	s.ErrorIs(DeleteDrink(ctx, d.ID), ErrNotFound)
	_, err = GetDrink(ctx, d.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *storeSuite) TestCustomizationCRUD() {
	ctx := s.T().Context()
	c, err := AddCustomization(ctx, "Canela", decimal.RequireFromString("0.50"))
	s.Require().NoError(err)

	_, err = AddCustomization(ctx, "Canela", decimal.RequireFromString("0.50"))
	s.ErrorIs(err, ErrInvalidInput)

	updated, err := UpdateCustomization(ctx, c.ID, "Canela em pó", decimal.RequireFromString("0.75"))
	s.Require().NoError(err)
	s.Equal("Canela em pó", updated.Name)

	s.Require().NoError(DeleteCustomization(ctx, c.ID))
	s.ErrorIs(DeleteCustomization(ctx, c.ID), ErrNotFound)
}

func (s *storeSuite) TestCartPersistsAndReprices() {
	ctx := s.T().Context()
	u := s.register()

	cart, err := AddToCart(ctx, u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 2, Customizations: []string{coco}})
	s.Require().NoError(err)
	decimalEq(s.T(), "32.00", cart.Subtotal)

	cart, err = AddToCart(ctx, u.ID, CartLineInput{DrinkID: seedExpresso, Quantity: 1})
	s.Require().NoError(err)
	s.Len(cart.Items, 2)
	decimalEq(s.T(), "47.00", cart.Subtotal)

	cart, err = EditCartItem(ctx, u.ID, 0, CartLineInput{DrinkID: seedAmericano, Quantity: 1, Customizations: []string{caramelo}})
	s.Require().NoError(err)
	s.Equal("Café Americano", cart.Items[0].Drink.Name)
	s.Equal("Café expresso", cart.Items[1].Drink.Name)

	cart, err = SetCartItemQuantity(ctx, u.ID, 1, 0)
	s.Require().NoError(err)
	s.Len(cart.Items, 1)

	stored, err := GetCart(ctx, u.ID)
	s.Require().NoError(err)
	decimalEq(s.T(), "16.50", stored.Subtotal)

	_, err = RemoveCartItem(ctx, u.ID, 5)
	s.ErrorIs(err, ErrNotFound)
	_, err = AddToCart(ctx, u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1, Customizations: []string{"Ketchup"}})
	s.ErrorIs(err, ErrUnknownCustomization)
}

func (s *storeSuite) TestRegisterAndLogin() {
	ctx := s.T().Context()
	u, err := Register(ctx, RegisterInput{Name: "Ana", Email: " Ana@Cafe.com ", Password: "segredo123"})
	s.Require().NoError(err)
	s.Equal("ana@cafe.com", u.Email)

	_, err = Register(ctx, RegisterInput{Name: "Ana 2", Email: "ana@cafe.com", Password: "segredo123"})
	s.ErrorIs(err, ErrEmailTaken)

	token, logged, err := Login(ctx, s.sessions, "ANA@cafe.com", "segredo123")
	s.Require().NoError(err)
	s.Equal(u.ID, logged.ID)

	me, err := UserForToken(ctx, s.sessions, token)
	s.Require().NoError(err)
	s.Equal(u.ID, me.ID)

	s.Require().NoError(Logout(ctx, s.sessions, token))
	_, err = UserForToken(ctx, s.sessions, token)
	s.ErrorIs(err, ErrNoSession)
}

func (s *storeSuite) TestLoginThrottle() {
	ctx := s.T().Context()
	s.register()
	email := "vitima@cafe.com"
	_, err := Register(ctx, RegisterInput{Name: "Vítima", Email: email, Password: "segredo123"})
	s.Require().NoError(err)

	_, _, err = Login(ctx, s.sessions, email, "errada")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, _, err = Login(ctx, s.sessions, email, "segredo123")
	var throttled *ThrottledError
	s.Require().True(errors.As(err, &throttled), "got %v", err)
	s.ErrorIs(err, ErrThrottled)
	s.InDelta(2, throttled.WaitSeconds, 1)

	_, err = db.Pool.Exec(ctx, `UPDATE login_throttle SET cooldown_until = now() - interval '1 second' WHERE email = $1`, email)
	s.Require().NoError(err)
	_, _, err = Login(ctx, s.sessions, email, "segredo123")
	s.Require().NoError(err)

	wait, err := LoginWaitSeconds(ctx, email)
	s.Require().NoError(err)
	s.Zero(wait)
}

func (s *storeSuite) TestPlaceOrderFromCart() {
	ctx := s.T().Context()
	u := s.register()

	_, err := s.checkout.PlaceOrder(ctx, PlaceOrderInput{CustomerID: u.ID, Method: models.PaymentPix})
	s.ErrorIs(err, ErrEmptyCart)

	_, err = AddToCart(ctx, u.ID, CartLineInput{DrinkID: seedAmericano, Quantity: 2, Customizations: []string{caramelo}})
	s.Require().NoError(err)

	o, err := s.checkout.PlaceOrder(ctx, PlaceOrderInput{CustomerID: u.ID, Method: models.PaymentPix})
	s.Require().NoError(err)

	s.Equal(OrderStatusPending, o.Status)
	s.Equal("BRL", o.Currency)
	s.Equal(u.Name, o.CustomerName)
	s.NotEmpty(o.PaymentRef)
	decimalEq(s.T(), "33.00", o.Subtotal)
	decimalEq(s.T(), "31.35", o.Total)
	decimalEq(s.T(), "1.65", o.Discount)
	s.Require().Len(o.Items, 1)
	s.Equal("Café Americano", o.Items[0].DrinkName)
	decimalEq(s.T(), "16.50", o.Items[0].UnitPrice)
	s.Equal([]string{caramelo}, models.CartItem{Customizations: o.Items[0].Customizations}.CustomizationNames())

	cart, err := GetCart(ctx, u.ID)
	s.Require().NoError(err)
	s.Empty(cart.Items)

	me, err := GetUser(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(31, *me.LoyaltyPoints)
}

func (s *storeSuite) TestPlaceOrderWithExplicitItemsKeepsCart() {
	ctx := s.T().Context()
	u := s.register()
	_, err := AddToCart(ctx, u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1})
	s.Require().NoError(err)

	o, err := s.checkout.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID: u.ID,
		Method:     models.PaymentCredit,
		Items:      []CartLineInput{{DrinkID: seedExpresso, Quantity: 1}},
	})
	s.Require().NoError(err)
	decimalEq(s.T(), "15.00", o.Total)

	cart, err := GetCart(ctx, u.ID)
	s.Require().NoError(err)
	s.Len(cart.Items, 1)
}

func (s *storeSuite) TestVoucherNeedsPoints() {
	ctx := s.T().Context()
	u := s.register()
	lines := []CartLineInput{{DrinkID: seedExpresso, Quantity: 2}}

	_, err := s.checkout.PlaceOrder(ctx, PlaceOrderInput{CustomerID: u.ID, Method: models.PaymentVoucher, Items: lines})
	s.ErrorIs(err, ErrInsufficientPoints)

	s.setPoints(u.ID, 60)
	o, err := s.checkout.PlaceOrder(ctx, PlaceOrderInput{CustomerID: u.ID, Method: models.PaymentVoucher, Items: lines})
	s.Require().NoError(err)
	decimalEq(s.T(), "27.00", o.Total)

	me, err := GetUser(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(60-50+27, *me.LoyaltyPoints)
}

func (s *storeSuite) placeOrder(userID int64, lines ...CartLineInput) *models.Order {
	o, err := s.checkout.PlaceOrder(s.T().Context(), PlaceOrderInput{CustomerID: userID, Method: models.PaymentCash, Items: lines})
	s.Require().NoError(err)
	return o
}

type countingProvider struct {
	charges int
}

func (p *countingProvider) Charge(ctx context.Context, amount decimal.Decimal, method models.PaymentMethod) (string, error) {
	p.charges++
	return NewFakeProvider(0).Charge(ctx, amount, method)
}

func (s *storeSuite) TestOversizedOrderIsRejectedBeforeCharge() {
	ctx := s.T().Context()
	u := s.register()
	payments := &countingProvider{}
	checkout := &Checkout{Payments: payments, VoucherCost: 50}

	_, err := checkout.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID: u.ID,
		Method:     models.PaymentPix,
		Items:      []CartLineInput{{DrinkID: seedCoado, Quantity: 10_000_000}},
	})
	s.ErrorIs(err, ErrInvalidQuantity)

	pricey, err := AddDrink(ctx, DrinkInput{Name: "Reserva", Price: decimal.RequireFromString("9999999.00"), Available: true})
	s.Require().NoError(err)
	_, err = checkout.PlaceOrder(ctx, PlaceOrderInput{
		CustomerID: u.ID,
		Method:     models.PaymentPix,
		Items:      []CartLineInput{{DrinkID: pricey.ID, Quantity: 11}},
	})
	s.ErrorIs(err, ErrInvalidInput)
	s.Zero(payments.charges)

	_, err = SetCartItemQuantity(ctx, u.ID, 0, 1)
	s.ErrorIs(err, ErrNotFound)
	_, err = AddToCart(ctx, u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 100})
	s.ErrorIs(err, ErrInvalidQuantity)

	orders, err := ListOrdersByCustomer(ctx, u.ID)
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *storeSuite) TestStatusLifecycle() {
	ctx := s.T().Context()
	u := s.register()
	o := s.placeOrder(u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1})

	_, err := UpdateOrderStatus(ctx, o.ID, OrderStatusDelivered)
	s.ErrorIs(err, ErrInvalidTransition)

	for _, want := range []string{OrderStatusPreparing, OrderStatusReady, OrderStatusDelivered} {
		o, err = AdvanceOrder(ctx, o.ID)
		s.Require().NoError(err)
		s.Equal(want, o.Status)
	}
	_, err = AdvanceOrder(ctx, o.ID)
	s.ErrorIs(err, ErrInvalidTransition)
	_, err = CancelOrder(ctx, o.ID)
	s.ErrorIs(err, ErrInvalidTransition)

	_, err = AdvanceOrder(ctx, 9999)
	s.ErrorIs(err, ErrNotFound)
}

func (s *storeSuite) TestCancelOnlyWhilePending() {
	ctx := s.T().Context()
	u := s.register()
	o := s.placeOrder(u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1})

	cancelled, err := CancelOrder(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(OrderStatusCancelled, cancelled.Status)

	other := s.placeOrder(u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1})
	_, err = AdvanceOrder(ctx, other.ID)
	s.Require().NoError(err)
	_, err = CancelOrder(ctx, other.ID)
	s.ErrorIs(err, ErrInvalidTransition)
}

func (s *storeSuite) TestMarkItemPrepared() {
	ctx := s.T().Context()
	u := s.register()
	o := s.placeOrder(u.ID,
		CartLineInput{DrinkID: seedCoado, Quantity: 1},
		CartLineInput{DrinkID: seedExpresso, Quantity: 1},
	)

	_, _, err := MarkItemPrepared(ctx, o.ID, o.Items[0].ID)
	s.ErrorIs(err, ErrInvalidTransition)

	_, err = AdvanceOrder(ctx, o.ID)
	s.Require().NoError(err)

	got, changed, err := MarkItemPrepared(ctx, o.ID, o.Items[0].ID)
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(OrderStatusPreparing, got.Status)
	s.True(got.Items[0].Prepared)

	_, _, err = MarkItemPrepared(ctx, o.ID, 424242)
	s.ErrorIs(err, ErrNotFound)

	got, changed, err = MarkItemPrepared(ctx, o.ID, o.Items[1].ID)
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(OrderStatusReady, got.Status)
}

func (s *storeSuite) TestListOrdersAndSummary() {
	ctx := s.T().Context()
	ana := s.register()
	bia := s.register()
	first := s.placeOrder(ana.ID, CartLineInput{DrinkID: seedCoado, Quantity: 2})
	second := s.placeOrder(ana.ID, CartLineInput{DrinkID: seedExpresso, Quantity: 1})
	third := s.placeOrder(bia.ID, CartLineInput{DrinkID: seedAmericano, Quantity: 1})
	_, err := CancelOrder(ctx, third.ID)
	s.Require().NoError(err)

	history, err := ListOrdersByCustomer(ctx, ana.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(second.ID, history[0].ID)
	s.Equal(first.ID, history[1].ID)
	s.Len(history[1].Items, 1)

	cancelled, err := ListOrders(ctx, OrderFilter{Status: OrderStatusCancelled})
	s.Require().NoError(err)
	s.Require().Len(cancelled, 1)
	s.Equal(third.ID, cancelled[0].ID)

	var today string
	s.Require().NoError(db.Pool.QueryRow(ctx, `SELECT to_char(now(), 'YYYY-MM-DD')`).Scan(&today))
	sum, err := KitchenSummary(ctx, today)
	s.Require().NoError(err)
	s.Equal(2, sum.Pending)
	s.Equal(1, sum.Cancelled)
	// cash: 26.00*0.9 + 15.00*0.9
	decimalEq(s.T(), "36.90", sum.Revenue)

	s.Require().NoError(DeleteOrder(ctx, first.ID))
	_, err = GetOrder(ctx, first.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *storeSuite) TestDeletedCustomerKeepsOrders() {
	ctx := s.T().Context()
	u := s.register()
	o := s.placeOrder(u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1})

	s.Require().NoError(DeleteUser(ctx, u.ID))
	got, err := GetOrder(ctx, o.ID)
	s.Require().NoError(err)
	s.Nil(got.CustomerID)
	s.Equal(u.Name, got.CustomerName)
}

func (s *storeSuite) TestOrderMessagePointer() {
	ctx := s.T().Context()
	u := s.register()
	o := s.placeOrder(u.ID, CartLineInput{DrinkID: seedCoado, Quantity: 1})

	_, _, ok, err := GetOrderMessagePointer(ctx, o.ID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(UpsertOrderMessagePointer(ctx, o.ID, -100, 5))
	s.Require().NoError(UpsertOrderMessagePointer(ctx, o.ID, -100, 6))
	chatID, msgID, ok, err := GetOrderMessagePointer(ctx, o.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(-100), chatID)
	s.Equal(6, msgID)
}

func (s *storeSuite) TestClientAdmin() {
	ctx := s.T().Context()
	u, temp, err := CreateUserWithTempPassword(ctx, RegisterInput{Name: "Balcão", Email: "balcao@cafe.com"})
	s.Require().NoError(err)
	s.NotEmpty(temp)

	_, err = VerifyPassword(ctx, "balcao@cafe.com", temp)
	s.Require().NoError(err)

	updated, err := UpdateUser(ctx, u.ID, "Balcão 2", "+55 11 99999-0000")
	s.Require().NoError(err)
	s.Equal("Balcão 2", updated.Name)
	s.Require().NotNil(updated.Phone)

	users, err := ListUsers(ctx)
	s.Require().NoError(err)
	s.Len(users, 1)

	_, err = UpdateUser(ctx, 9999, "X", "")
	s.ErrorIs(err, ErrNotFound)
}
