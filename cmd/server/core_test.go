package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
	"github.com/RammasunW/tablefare/internal/delivery"
	"github.com/RammasunW/tablefare/internal/finance"
	"github.com/RammasunW/tablefare/internal/ledger"
	"github.com/RammasunW/tablefare/internal/orders"
	"github.com/RammasunW/tablefare/internal/reputation"
)

type EngineTestSuite struct {
	suite.Suite
	postgres testcontainers.Container
	ctx      context.Context
}

func TestEngineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupSuite() {
	s.ctx = context.Background()
	os.Setenv("JWT_SECRET", "test-secret")

	ctx, cancel := context.WithTimeout(s.ctx, 60*time.Second)
	defer cancel()

	postgresContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:latest"),
		tcpostgres.WithDatabase("tablefare"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("example"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(s.T(), err)
	s.postgres = postgresContainer

	host, err := postgresContainer.Host(ctx)
	require.NoError(s.T(), err)
	port, err := postgresContainer.MappedPort(ctx, "5432")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("postgres://postgres:example@%s:%s/tablefare?sslmode=disable", host, port.Port())
	require.NoError(s.T(), db.Connect(dsn))
	require.NoError(s.T(), db.EnsureSchema())
}

func (s *EngineTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(s.T(), s.postgres.Terminate(ctx))
}

// ===== seed helpers =====

func (s *EngineTestSuite) seedUser(role string, empType *string) string {
	id := uuid.New().String()
	name := "u-" + id[:8]
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(s.T(), err)
	_, err = db.Conn.Exec(s.ctx,
		`INSERT INTO users (id, username, email, password_hash, role, emp_type, salary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, name, name+"@example.com", string(hash), role, empType, 3000_00)
	require.NoError(s.T(), err)
	_, err = db.Conn.Exec(s.ctx,
		`INSERT INTO wallets (id, user_id, balance) VALUES ($1, $2, 0)`,
		uuid.New().String(), id)
	require.NoError(s.T(), err)
	return id
}

func (s *EngineTestSuite) seedCustomer() string { return s.seedUser("customer", nil) }

func (s *EngineTestSuite) seedChef() string {
	t := "chef"
	return s.seedUser("employee", &t)
}

func (s *EngineTestSuite) seedAgent() string {
	t := "delivery"
	return s.seedUser("employee", &t)
}

func (s *EngineTestSuite) seedManager() string { return s.seedUser("manager", nil) }

func (s *EngineTestSuite) seedDish(chefID string, price int64) string {
	id := uuid.New().String()
	_, err := db.Conn.Exec(s.ctx,
		`INSERT INTO dishes (id, chef_id, name, price, active) VALUES ($1, $2, $3, $4, TRUE)`,
		id, chefID, "dish-"+id[:8], price)
	require.NoError(s.T(), err)
	return id
}

func (s *EngineTestSuite) balance(userID string) int64 {
	var b int64
	require.NoError(s.T(), db.Conn.QueryRow(s.ctx,
		`SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&b))
	return b
}

func (s *EngineTestSuite) orderStatus(orderID string) string {
	var st string
	require.NoError(s.T(), db.Conn.QueryRow(s.ctx,
		`SELECT status FROM orders WHERE id = $1`, orderID).Scan(&st))
	return st
}

func (s *EngineTestSuite) placeSimpleOrder(customerID, dishID string) string {
	orderID, err := orders.Place(s.ctx, customerID,
		[]orders.CartItem{{DishID: dishID, Quantity: 1}}, "12 Test Lane")
	require.NoError(s.T(), err)
	return orderID
}

// ===== wallet ledger =====

func (s *EngineTestSuite) TestDepositAndLedgerReplay() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 2500)

	_, err := ledger.Deposit(s.ctx, customer, 3000)
	s.Require().NoError(err)
	balance, err := ledger.Deposit(s.ctx, customer, 2000)
	s.Require().NoError(err)
	s.Equal(int64(5000), balance)

	s.placeSimpleOrder(customer, dish)
	s.Equal(int64(2500), s.balance(customer))

	// Replaying the journal from zero must land on every recorded
	// balance_after and finish at the wallet balance.
	rows, err := db.Conn.Query(s.ctx,
		`SELECT t.amount, t.balance_after FROM transactions t
		 JOIN wallets w ON w.id = t.wallet_id
		 WHERE w.user_id = $1 ORDER BY t.timestamp ASC`, customer)
	s.Require().NoError(err)
	defer rows.Close()

	var running int64
	for rows.Next() {
		var amount, after int64
		s.Require().NoError(rows.Scan(&amount, &after))
		running += amount
		s.Equal(after, running)
	}
	s.Equal(s.balance(customer), running)
}

func (s *EngineTestSuite) TestDepositRejectsNonPositive() {
	customer := s.seedCustomer()
	_, err := ledger.Deposit(s.ctx, customer, 0)
	s.ErrorIs(err, apperr.ErrValidation)
	_, err = ledger.Deposit(s.ctx, customer, -100)
	s.ErrorIs(err, apperr.ErrValidation)
}

// ===== order pipeline =====

func (s *EngineTestSuite) TestPlaceOrderInsufficientFundsIsPunitive() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 4000)

	_, err := ledger.Deposit(s.ctx, customer, 1000)
	s.Require().NoError(err)

	_, err = orders.Place(s.ctx, customer,
		[]orders.CartItem{{DishID: dish, Quantity: 1}}, "12 Test Lane")
	s.ErrorIs(err, apperr.ErrInsufficientFunds)

	// No order, untouched balance, but the warning sticks.
	var count, warnings int
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customer).Scan(&count))
	s.Equal(0, count)
	s.Equal(int64(1000), s.balance(customer))
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT warnings FROM users WHERE id = $1`, customer).Scan(&warnings))
	s.Equal(1, warnings)
}

func (s *EngineTestSuite) TestConcurrentPlacementOnlyOneWins() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 4000)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = orders.Place(s.ctx, customer,
				[]orders.CartItem{{DishID: dish, Quantity: 1}}, "12 Test Lane")
		}(i)
	}
	wg.Wait()

	ok, failed := 0, 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			s.ErrorIs(err, apperr.ErrInsufficientFunds)
			failed++
		}
	}
	s.Equal(1, ok)
	s.Equal(1, failed)
	s.Equal(int64(1000), s.balance(customer))
}

func (s *EngineTestSuite) TestSuspensionBlocksPlacement() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 500)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	_, err = db.Conn.Exec(s.ctx, `UPDATE users SET warnings = 3 WHERE id = $1`, customer)
	s.Require().NoError(err)

	_, err = orders.Place(s.ctx, customer,
		[]orders.CartItem{{DishID: dish, Quantity: 1}}, "12 Test Lane")
	s.ErrorIs(err, apperr.ErrAccountSuspended)
}

func (s *EngineTestSuite) TestVIPPromotionAfterThresholds() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 4000)

	_, err := ledger.Deposit(s.ctx, customer, 20000)
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		s.placeSimpleOrder(customer, dish)
	}

	// Spend 12000 > 10000 and three orders with no pending complaints.
	var isVIP bool
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT is_vip FROM users WHERE id = $1`, customer).Scan(&isVIP))
	s.True(isVIP)
}

// ===== delivery bidding and assignment =====

func (s *EngineTestSuite) TestAssignmentMemoOverride() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	agentLow := s.seedAgent()
	agentHigh := s.seedAgent()
	dish := s.seedDish(chef, 2000)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)

	_, err = delivery.SubmitBid(s.ctx, agentLow, orderID, 500)
	s.Require().NoError(err)
	_, err = delivery.SubmitBid(s.ctx, agentHigh, orderID, 700)
	s.Require().NoError(err)

	// Picking the pricier bid without a memo is refused.
	_, err = delivery.Assign(s.ctx, manager, orderID, agentHigh, "")
	s.ErrorIs(err, apperr.ErrJustificationRequired)
	s.Equal("PENDING", s.orderStatus(orderID))

	_, err = delivery.Assign(s.ctx, manager, orderID, agentHigh, "closest to the restaurant right now")
	s.Require().NoError(err)
	s.Equal("ASSIGNED", s.orderStatus(orderID))

	var chosen, other string
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT status FROM delivery_bids WHERE order_id = $1 AND agent_id = $2`, orderID, agentHigh).Scan(&chosen))
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT status FROM delivery_bids WHERE order_id = $1 AND agent_id = $2`, orderID, agentLow).Scan(&other))
	s.Equal("ACCEPTED", chosen)
	s.Equal("REJECTED", other)

	// Second assignment of the same order must fail the status check, and a
	// late bid against the assigned order is refused rather than recorded.
	_, err = delivery.Assign(s.ctx, manager, orderID, agentLow, "")
	s.ErrorIs(err, apperr.ErrInvalidState)
	_, err = delivery.SubmitBid(s.ctx, agentLow, orderID, 400)
	s.ErrorIs(err, apperr.ErrInvalidState)
}

func (s *EngineTestSuite) TestLowestBidNeedsNoMemo() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	agent := s.seedAgent()
	dish := s.seedDish(chef, 2000)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)

	_, err = delivery.SubmitBid(s.ctx, agent, orderID, 600)
	s.Require().NoError(err)

	_, err = delivery.Assign(s.ctx, manager, orderID, agent, "")
	s.Require().NoError(err)
}

func (s *EngineTestSuite) TestAssignWithoutBidsFails() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	agent := s.seedAgent()
	dish := s.seedDish(chef, 2000)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)

	_, err = delivery.Assign(s.ctx, manager, orderID, agent, "")
	s.ErrorIs(err, apperr.ErrNoBidsAvailable)
}

func (s *EngineTestSuite) TestDeliveryTransitionsCompleteOrder() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	agent := s.seedAgent()
	dish := s.seedDish(chef, 2000)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)

	_, err = delivery.SubmitBid(s.ctx, agent, orderID, 500)
	s.Require().NoError(err)
	deliveryID, err := delivery.Assign(s.ctx, manager, orderID, agent, "")
	s.Require().NoError(err)

	// No skipping straight to DELIVERED.
	err = delivery.UpdateStatus(s.ctx, deliveryID, delivery.StatusDelivered)
	s.ErrorIs(err, apperr.ErrInvalidTransition)

	s.Require().NoError(delivery.UpdateStatus(s.ctx, deliveryID, delivery.StatusOnRoute))
	s.Require().NoError(delivery.UpdateStatus(s.ctx, deliveryID, delivery.StatusDelivered))
	s.Equal("COMPLETED", s.orderStatus(orderID))

	// Terminal: no further moves.
	err = delivery.UpdateStatus(s.ctx, deliveryID, delivery.StatusOnRoute)
	s.ErrorIs(err, apperr.ErrInvalidTransition)
}

// ===== refunds and closure =====

func (s *EngineTestSuite) TestRefundIsIdempotentGuarded() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 3000)

	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)
	s.Equal(int64(2000), s.balance(customer))

	s.Require().NoError(finance.ProcessRefund(s.ctx, orderID, "quality issue"))
	s.Equal(int64(5000), s.balance(customer))
	s.Equal("REFUNDED", s.orderStatus(orderID))

	err = finance.ProcessRefund(s.ctx, orderID, "quality issue")
	s.ErrorIs(err, apperr.ErrAlreadyRefunded)
	s.Equal(int64(5000), s.balance(customer))
}

func (s *EngineTestSuite) TestCloseAccountRefundsOpenOrdersAndDrainsWallet() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	dish := s.seedDish(chef, 3000)

	_, err := ledger.Deposit(s.ctx, customer, 10000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)

	s.Require().NoError(finance.CloseAccount(s.ctx, customer, nil, finance.ReasonVoluntary))

	var status string
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT status FROM users WHERE id = $1`, customer).Scan(&status))
	s.Equal("DEREGISTERED", status)
	s.Equal("REFUNDED", s.orderStatus(orderID))

	// Voluntary closure leaves no blacklist trace.
	var banned bool
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT EXISTS (SELECT 1 FROM blacklist b JOIN users u ON u.username = b.username WHERE u.id = $1)`,
		customer).Scan(&banned))
	s.False(banned)
}

func (s *EngineTestSuite) TestKickedClosureBlacklistsIdentity() {
	customer := s.seedCustomer()
	manager := s.seedManager()

	// Non-voluntary closure without a manager is refused.
	err := finance.CloseAccount(s.ctx, customer, nil, finance.ReasonKicked)
	s.ErrorIs(err, apperr.ErrUnauthorized)

	s.Require().NoError(finance.CloseAccount(s.ctx, customer, &manager, finance.ReasonKicked))

	var banned bool
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT EXISTS (SELECT 1 FROM blacklist b JOIN users u ON u.username = b.username WHERE u.id = $1)`,
		customer).Scan(&banned))
	s.True(banned)
}

// ===== reputation =====

// orderBetween places one order linking a customer to a chef, for complaint
// and compliment flows.
func (s *EngineTestSuite) orderBetween(customer, chef string) string {
	dish := s.seedDish(chef, 1000)
	_, err := ledger.Deposit(s.ctx, customer, 5000)
	s.Require().NoError(err)
	orderID := s.placeSimpleOrder(customer, dish)
	return orderID
}

func (s *EngineTestSuite) TestComplaintValidation() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	orderID := s.orderBetween(customer, chef)

	// Too short.
	_, err := reputation.FileComplaint(s.ctx, customer, chef, reputation.CategoryChef, "too short", nil)
	s.ErrorIs(err, apperr.ErrValidation)

	// A referenced order the accused never cooked for.
	stranger := s.seedChef()
	_, err = reputation.FileComplaint(s.ctx, customer, stranger, reputation.CategoryChef,
		"the food arrived completely cold and inedible", &orderID)
	s.ErrorIs(err, apperr.ErrNoTransactionHistory)

	// Valid with the right chef on the order, then duplicate while pending.
	_, err = reputation.FileComplaint(s.ctx, customer, chef, reputation.CategoryChef,
		"the food arrived completely cold and inedible", &orderID)
	s.Require().NoError(err)
	_, err = reputation.FileComplaint(s.ctx, customer, chef, reputation.CategoryChef,
		"the food arrived completely cold and inedible", &orderID)
	s.ErrorIs(err, apperr.ErrDuplicateRequest)
}

func (s *EngineTestSuite) TestDismissedComplaintWarnsFiler() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	s.orderBetween(customer, chef)

	id, err := reputation.FileComplaint(s.ctx, customer, chef, reputation.CategoryChef,
		"the food arrived completely cold and inedible", nil)
	s.Require().NoError(err)
	s.Require().NoError(reputation.ResolveComplaint(s.ctx, manager, id, reputation.ComplaintDismissed, "no evidence"))

	var filerWarnings, accusedWarnings int
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT warnings FROM users WHERE id = $1`, customer).Scan(&filerWarnings))
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT warnings FROM users WHERE id = $1`, chef).Scan(&accusedWarnings))
	s.Equal(1, filerWarnings)
	s.Equal(0, accusedWarnings)

	// Already resolved.
	err = reputation.ResolveComplaint(s.ctx, manager, id, reputation.ComplaintUpheld, "")
	s.ErrorIs(err, apperr.ErrInvalidState)
}

func (s *EngineTestSuite) TestThreeUpheldComplaintsDeregisterCustomer() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	s.orderBetween(customer, chef)

	for i := 0; i < 3; i++ {
		id, err := reputation.FileComplaint(s.ctx, chef, customer, reputation.CategoryCustomer,
			"customer was abusive to staff during handoff", nil)
		s.Require().NoError(err)
		s.Require().NoError(reputation.ResolveComplaint(s.ctx, manager, id, reputation.ComplaintUpheld, "verified"))
	}

	var status string
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT status FROM users WHERE id = $1`, customer).Scan(&status))
	s.Equal("DEREGISTERED", status)
}

func (s *EngineTestSuite) TestVIPLosesStatusAtTwoWarnings() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	s.orderBetween(customer, chef)

	_, err := db.Conn.Exec(s.ctx,
		`UPDATE users SET is_vip = TRUE, warnings = 1 WHERE id = $1`, customer)
	s.Require().NoError(err)

	id, err := reputation.FileComplaint(s.ctx, chef, customer, reputation.CategoryCustomer,
		"customer was abusive to staff during handoff", nil)
	s.Require().NoError(err)
	s.Require().NoError(reputation.ResolveComplaint(s.ctx, manager, id, reputation.ComplaintUpheld, "verified"))

	var isVIP bool
	var status string
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT is_vip, status FROM users WHERE id = $1`, customer).Scan(&isVIP, &status))
	s.False(isVIP)
	s.Equal("ACTIVE", status)
}

func (s *EngineTestSuite) TestDismissalWarnsVIPFilerWithoutRevoking() {
	customer := s.seedCustomer()
	chef := s.seedChef()
	manager := s.seedManager()
	s.orderBetween(customer, chef)

	_, err := db.Conn.Exec(s.ctx,
		`UPDATE users SET is_vip = TRUE, warnings = 1 WHERE id = $1`, customer)
	s.Require().NoError(err)

	id, err := reputation.FileComplaint(s.ctx, customer, chef, reputation.CategoryChef,
		"the food arrived completely cold and inedible", nil)
	s.Require().NoError(err)
	s.Require().NoError(reputation.ResolveComplaint(s.ctx, manager, id, reputation.ComplaintDismissed, "no evidence"))

	// The dismissal warns the filer but leaves VIP standing alone.
	var isVIP bool
	var warnings int
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT is_vip, warnings FROM users WHERE id = $1`, customer).Scan(&isVIP, &warnings))
	s.Equal(2, warnings)
	s.True(isVIP)
}

func (s *EngineTestSuite) TestThreeUpheldChefComplaintsDemote() {
	chef := s.seedChef()
	manager := s.seedManager()

	var salaryBefore int64
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT salary FROM users WHERE id = $1`, chef).Scan(&salaryBefore))

	for i := 0; i < 3; i++ {
		customer := s.seedCustomer()
		s.orderBetween(customer, chef)
		id, err := reputation.FileComplaint(s.ctx, customer, chef, reputation.CategoryChef,
			"the dish was undercooked and made me feel unwell", nil)
		s.Require().NoError(err)
		s.Require().NoError(reputation.ResolveComplaint(s.ctx, manager, id, reputation.ComplaintUpheld, "verified"))
	}

	var salaryAfter int64
	var demotions int
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT salary, demotions FROM users WHERE id = $1`, chef).Scan(&salaryAfter, &demotions))
	s.Equal(1, demotions)
	s.Equal(salaryBefore-salaryBefore*15/100, salaryAfter)
}

func (s *EngineTestSuite) TestComplimentCancelsOldestPendingComplaint() {
	customer1 := s.seedCustomer()
	customer2 := s.seedCustomer()
	chef := s.seedChef()
	s.orderBetween(customer1, chef)
	s.orderBetween(customer2, chef)

	first, err := reputation.FileComplaint(s.ctx, customer1, chef, reputation.CategoryChef,
		"the food arrived completely cold and inedible", nil)
	s.Require().NoError(err)
	second, err := reputation.FileComplaint(s.ctx, customer2, chef, reputation.CategoryChef,
		"portion size was far smaller than advertised", nil)
	s.Require().NoError(err)

	complimentID, err := reputation.FileCompliment(s.ctx, customer2, chef, reputation.CategoryChef,
		"fantastic meal, would order again")
	s.Require().NoError(err)

	var firstStatus, secondStatus string
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT status FROM complaints WHERE id = $1`, first).Scan(&firstStatus))
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT status FROM complaints WHERE id = $1`, second).Scan(&secondStatus))
	s.Equal("CANCELLED", firstStatus)
	s.Equal("PENDING", secondStatus)

	var backref *string
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT cancelled_complaint_id::text FROM compliments WHERE id = $1`, complimentID).Scan(&backref))
	s.Require().NotNil(backref)
	s.Equal(first, *backref)
}

func (s *EngineTestSuite) TestEveryThirdComplimentPaysBonus() {
	chef := s.seedChef()
	for i := 0; i < 3; i++ {
		customer := s.seedCustomer()
		s.orderBetween(customer, chef)
		_, err := reputation.FileCompliment(s.ctx, customer, chef, reputation.CategoryChef,
			"fantastic meal, would order again")
		s.Require().NoError(err)
	}

	var bonuses int
	s.Require().NoError(db.Conn.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM hr_actions WHERE employee_id = $1 AND action_type = 'PROMOTION' AND bonus > 0`,
		chef).Scan(&bonuses))
	s.Equal(1, bonuses)
}

// ===== HTTP surface =====

func (s *EngineTestSuite) managerToken(managerID string) string {
	claims := jwt.MapClaims{
		"user_id": managerID,
		"role":    "manager",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	s.Require().NoError(err)
	return signed
}

func (s *EngineTestSuite) TestSignupApprovalLoginFlow() {
	e := newServer()
	manager := s.seedManager()

	body, _ := json.Marshal(map[string]string{
		"username": "flow-user",
		"email":    "flow-user@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var signupResp struct {
		RegistrationID string `json:"registration_id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &signupResp))

	// Login before approval fails.
	body, _ = json.Marshal(map[string]string{"username": "flow-user", "password": "password123"})
	req = httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusUnauthorized, rec.Code)

	// Manager approves.
	req = httptest.NewRequest(http.MethodPost, "/manage/registrations/"+signupResp.RegistrationID+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+s.managerToken(manager))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusCreated, rec.Code)

	// Login now works and the token opens /me.
	body, _ = json.Marshal(map[string]string{"username": "flow-user", "password": "password123"})
	req = httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var loginResp struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &loginResp))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	// Non-manager token is bounced off the manager console.
	req = httptest.NewRequest(http.MethodGet, "/manage/registrations", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusForbidden, rec.Code)
}
