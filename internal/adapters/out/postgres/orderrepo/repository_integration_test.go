package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of the aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(id kernel.UUID, aggregate any) {
	m.Called(id, aggregate)
}

// OrderRepositoryIntegrationTestSuite verifies order persistence behavior
// against a real PostgreSQL container.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	tracker    *MockAggregateTracker
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) createTestOrder() *order.Order {
	pickup, err := kernel.NewGeoPoint(6.5244, 3.3792)
	suite.Require().NoError(err)
	dropoff, err := kernel.NewGeoPoint(6.4281, 3.4219)
	suite.Require().NoError(err)

	o, err := order.NewOrder(
		kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(),
		pickup, dropoff,
		[]order.Item{
			{Name: "Jollof rice", Quantity: 2, Price: 2500},
			{Name: "Chapman", Quantity: 1, Price: 1200},
		},
		800, 7000,
	)
	suite.Require().NoError(err)
	return o
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAddAndGet() {
	ctx := context.Background()
	testOrder := suite.createTestOrder()
	suite.tracker.On("TrackAggregate", testOrder.ID(), testOrder).Once()

	suite.Require().NoError(suite.repository.Add(ctx, testOrder))

	loaded, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(testOrder.ID(), loaded.ID())
	suite.Equal(testOrder.VendorID(), loaded.VendorID())
	suite.Equal(order.ReadyForPickup, loaded.Status())
	suite.Nil(loaded.Rider())
	suite.Len(loaded.Items(), 2)
	suite.Equal("Jollof rice", loaded.Items()[0].Name)
	suite.InDelta(800, loaded.DeliveryFee(), 0.001)
	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NotFound() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_PersistsAssignment() {
	ctx := context.Background()
	testOrder := suite.createTestOrder()
	riderID := kernel.NewUUID()
	suite.tracker.On("TrackAggregate", testOrder.ID(), testOrder).Twice()

	suite.Require().NoError(suite.repository.Add(ctx, testOrder))
	suite.Require().NoError(testOrder.AssignRider(riderID))
	suite.Require().NoError(suite.repository.Update(ctx, testOrder))

	loaded, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.RiderAssigned, loaded.Status())
	suite.Require().NotNil(loaded.Rider())
	suite.True(loaded.Rider().IsEqual(riderID))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_PersistsUnassignment() {
	ctx := context.Background()
	testOrder := suite.createTestOrder()
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything)

	suite.Require().NoError(suite.repository.Add(ctx, testOrder))
	suite.Require().NoError(testOrder.AssignRider(kernel.NewUUID()))
	suite.Require().NoError(suite.repository.Update(ctx, testOrder))

	// Dissolving the assignment must null the rider column out again.
	suite.Require().NoError(testOrder.UnassignRider())
	suite.Require().NoError(suite.repository.Update(ctx, testOrder))

	loaded, err := suite.repository.Get(ctx, testOrder.ID())
	suite.Require().NoError(err)
	suite.Equal(order.ReadyForPickup, loaded.Status())
	suite.Nil(loaded.Rider())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_UnknownOrder() {
	testOrder := suite.createTestOrder()

	err := suite.repository.Update(context.Background(), testOrder)

	suite.Require().ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetAllDispatchable() {
	ctx := context.Background()
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything)

	ready := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, ready))

	assigned := suite.createTestOrder()
	suite.Require().NoError(assigned.AssignRider(kernel.NewUUID()))
	suite.Require().NoError(suite.repository.Add(ctx, assigned))

	delivered := suite.createTestOrder()
	suite.Require().NoError(delivered.AssignRider(kernel.NewUUID()))
	suite.Require().NoError(delivered.ConfirmPickup())
	suite.Require().NoError(delivered.CompleteDelivery())
	suite.Require().NoError(suite.repository.Add(ctx, delivered))

	cancelled := suite.createTestOrder()
	suite.Require().NoError(cancelled.Cancel())
	suite.Require().NoError(suite.repository.Add(ctx, cancelled))

	orders, err := suite.repository.GetAllDispatchable(ctx)

	suite.Require().NoError(err)
	suite.Len(orders, 2)
	ids := map[kernel.UUID]order.Status{}
	for _, o := range orders {
		ids[o.ID()] = o.Status()
	}
	suite.Equal(order.ReadyForPickup, ids[ready.ID()])
	suite.Equal(order.RiderAssigned, ids[assigned.ID()])
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
