// Package http exposes the dispatch engine over a REST API: order
// submission and cancellation for the marketplace, presence and offer
// responses for rider apps, and read-only job state for operators.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/application/queries"
	"dispatch/internal/core/domain/model/job"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Server wires the dispatch application services to echo handlers.
type Server struct {
	intake      *dispatch.OrderIntake
	presence    *dispatch.RiderPresence
	coordinator *dispatch.Coordinator
	store       *dispatch.JobStore

	// Query handlers
	getAllRidersHandler    queries.GetAllRidersQueryHandler
	getActiveOrdersHandler queries.GetActiveOrdersQueryHandler
}

// NewServer creates the HTTP server facade.
func NewServer(
	intake *dispatch.OrderIntake,
	presence *dispatch.RiderPresence,
	coordinator *dispatch.Coordinator,
	store *dispatch.JobStore,
	getAllRidersHandler queries.GetAllRidersQueryHandler,
	getActiveOrdersHandler queries.GetActiveOrdersQueryHandler,
) *Server {
	return &Server{
		intake:                 intake,
		presence:               presence,
		coordinator:            coordinator,
		store:                  store,
		getAllRidersHandler:    getAllRidersHandler,
		getActiveOrdersHandler: getActiveOrdersHandler,
	}
}

// RegisterRoutes attaches all handlers to the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.Health)

	api := e.Group("/api/v1")

	api.POST("/orders", s.SubmitOrder)
	api.DELETE("/orders/:orderId", s.CancelOrder)
	api.GET("/orders/active", s.GetActiveOrders)

	api.POST("/riders", s.RegisterRider)
	api.GET("/riders", s.GetRiders)
	api.POST("/riders/:riderId/online", s.RiderOnline)
	api.POST("/riders/:riderId/offline", s.RiderOffline)
	api.POST("/riders/:riderId/location", s.RiderLocation)

	api.POST("/jobs/:orderId/accept", s.AcceptOffer)
	api.POST("/jobs/:orderId/reject", s.RejectOffer)
	api.POST("/jobs/:orderId/pickup", s.ConfirmPickup)
	api.POST("/jobs/:orderId/complete", s.CompleteDelivery)
	api.GET("/jobs", s.GetJobs)
	api.GET("/jobs/:orderId", s.GetJob)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type geoPointBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type itemBody struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type submitOrderRequest struct {
	VendorID    string       `json:"vendorId"`
	CustomerID  string       `json:"customerId"`
	Pickup      geoPointBody `json:"pickup"`
	Dropoff     geoPointBody `json:"dropoff"`
	Items       []itemBody   `json:"items"`
	DeliveryFee float64      `json:"deliveryFee"`
	Total       float64      `json:"total"`
}

type riderResponseRequest struct {
	RiderID string `json:"riderId"`
}

type registerRiderRequest struct {
	Name string `json:"name"`
}

type jobResponse struct {
	OrderID        string     `json:"orderId"`
	Status         string     `json:"status"`
	CurrentOfferee *string    `json:"currentOfferee,omitempty"`
	OfferExpiresAt *time.Time `json:"offerExpiresAt,omitempty"`
	RetryCount     int        `json:"retryCount"`
	CandidatesLeft int        `json:"candidatesLeft"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastActionAt   time.Time  `json:"lastActionAt"`
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Healthy")
}

// SubmitOrder handles POST /api/v1/orders - accepts a ready-for-pickup
// order and starts its dispatch cycle.
func (s *Server) SubmitOrder(ctx echo.Context) error {
	var request submitOrderRequest
	if err := ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	vendorID, err := kernel.UUIDFromString(request.VendorID)
	if err != nil {
		return badRequest(ctx, "Invalid vendor id")
	}
	customerID, err := kernel.UUIDFromString(request.CustomerID)
	if err != nil {
		return badRequest(ctx, "Invalid customer id")
	}
	pickup, err := kernel.NewGeoPoint(request.Pickup.Latitude, request.Pickup.Longitude)
	if err != nil {
		return badRequest(ctx, "Invalid pickup location: "+err.Error())
	}
	dropoff, err := kernel.NewGeoPoint(request.Dropoff.Latitude, request.Dropoff.Longitude)
	if err != nil {
		return badRequest(ctx, "Invalid dropoff location: "+err.Error())
	}

	items := make([]order.Item, len(request.Items))
	for i, item := range request.Items {
		items[i] = order.Item{Name: item.Name, Quantity: item.Quantity, Price: item.Price}
	}

	orderID, err := s.intake.SubmitOrder(ctx.Request().Context(), dispatch.SubmitOrderCommand{
		VendorID:    vendorID,
		CustomerID:  customerID,
		Pickup:      pickup,
		Dropoff:     dropoff,
		Items:       items,
		DeliveryFee: request.DeliveryFee,
		Total:       request.Total,
	})
	if err != nil {
		return mapError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"orderId": orderID.String()})
}

// CancelOrder handles DELETE /api/v1/orders/:orderId - cancels an order
// and retracts any open offer or uncollected assignment.
func (s *Server) CancelOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	if err := s.intake.CancelOrder(ctx.Request().Context(), orderID); err != nil {
		return mapError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RegisterRider handles POST /api/v1/riders - creates a rider account.
func (s *Server) RegisterRider(ctx echo.Context) error {
	var request registerRiderRequest
	if err := ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	riderID, err := s.presence.RegisterRider(ctx.Request().Context(), request.Name)
	if err != nil {
		return mapError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, map[string]string{"riderId": riderID.String()})
}

// RiderOnline handles POST /api/v1/riders/:riderId/online.
func (s *Server) RiderOnline(ctx echo.Context) error {
	riderID, err := kernel.UUIDFromString(ctx.Param("riderId"))
	if err != nil {
		return badRequest(ctx, "Invalid rider id")
	}
	var request geoPointBody
	if err := ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	location, err := kernel.NewGeoPoint(request.Latitude, request.Longitude)
	if err != nil {
		return badRequest(ctx, "Invalid location: "+err.Error())
	}

	if err := s.presence.GoOnline(ctx.Request().Context(), riderID, location); err != nil {
		return mapError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RiderOffline handles POST /api/v1/riders/:riderId/offline. Any open
// offer the rider holds is rebroadcast to the next candidate.
func (s *Server) RiderOffline(ctx echo.Context) error {
	riderID, err := kernel.UUIDFromString(ctx.Param("riderId"))
	if err != nil {
		return badRequest(ctx, "Invalid rider id")
	}

	if err := s.presence.GoOffline(ctx.Request().Context(), riderID); err != nil {
		return mapError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RiderLocation handles POST /api/v1/riders/:riderId/location.
func (s *Server) RiderLocation(ctx echo.Context) error {
	riderID, err := kernel.UUIDFromString(ctx.Param("riderId"))
	if err != nil {
		return badRequest(ctx, "Invalid rider id")
	}
	var request geoPointBody
	if err := ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	location, err := kernel.NewGeoPoint(request.Latitude, request.Longitude)
	if err != nil {
		return badRequest(ctx, "Invalid location: "+err.Error())
	}

	if err := s.presence.ReportLocation(ctx.Request().Context(), riderID, location); err != nil {
		return mapError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// AcceptOffer handles POST /api/v1/jobs/:orderId/accept - the rider
// claims the open offer. Stale accepts return 409.
func (s *Server) AcceptOffer(ctx echo.Context) error {
	return s.riderResponse(ctx, s.coordinator.OnRiderAccept)
}

// RejectOffer handles POST /api/v1/jobs/:orderId/reject - the rider
// declines the open offer, moving it to the next candidate.
func (s *Server) RejectOffer(ctx echo.Context) error {
	return s.riderResponse(ctx, s.coordinator.OnRiderReject)
}

// ConfirmPickup handles POST /api/v1/jobs/:orderId/pickup.
func (s *Server) ConfirmPickup(ctx echo.Context) error {
	return s.riderResponse(ctx, s.coordinator.ConfirmPickup)
}

// CompleteDelivery handles POST /api/v1/jobs/:orderId/complete.
func (s *Server) CompleteDelivery(ctx echo.Context) error {
	return s.riderResponse(ctx, s.coordinator.Complete)
}

// GetJobs handles GET /api/v1/jobs - lists the live dispatch jobs.
func (s *Server) GetJobs(ctx echo.Context) error {
	views := s.store.List()

	response := make([]jobResponse, len(views))
	for i, view := range views {
		response[i] = toJobResponse(view)
	}
	return ctx.JSON(http.StatusOK, response)
}

// GetJob handles GET /api/v1/jobs/:orderId - a single job's state.
func (s *Server) GetJob(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	view, err := s.store.Snapshot(orderID)
	if err != nil {
		return mapError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toJobResponse(view))
}

type riderListItem struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Online          bool          `json:"online"`
	Busy            bool          `json:"busy"`
	Location        *geoPointBody `json:"location,omitempty"`
	Rating          float64       `json:"rating"`
	CompletedOrders int           `json:"completedOrders"`
}

type activeOrderItem struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	RiderID *string      `json:"riderId,omitempty"`
	Pickup  geoPointBody `json:"pickup"`
	Dropoff geoPointBody `json:"dropoff"`
}

// GetRiders handles GET /api/v1/riders - the fleet read model.
func (s *Server) GetRiders(ctx echo.Context) error {
	riders, err := s.getAllRidersHandler.Handle(ctx.Request().Context(), queries.NewGetAllRidersQuery())
	if err != nil {
		return mapError(ctx, err)
	}

	response := make([]riderListItem, len(riders))
	for i, rider := range riders {
		item := riderListItem{
			ID:              rider.ID.String(),
			Name:            rider.Name,
			Online:          rider.Online,
			Busy:            rider.Busy,
			Rating:          rider.Rating,
			CompletedOrders: rider.CompletedOrders,
		}
		if rider.Location != nil {
			item.Location = &geoPointBody{
				Latitude:  rider.Location.Latitude(),
				Longitude: rider.Location.Longitude(),
			}
		}
		response[i] = item
	}
	return ctx.JSON(http.StatusOK, response)
}

// GetActiveOrders handles GET /api/v1/orders/active - orders still in flight.
func (s *Server) GetActiveOrders(ctx echo.Context) error {
	orders, err := s.getActiveOrdersHandler.Handle(ctx.Request().Context(), queries.NewGetActiveOrdersQuery())
	if err != nil {
		return mapError(ctx, err)
	}

	response := make([]activeOrderItem, len(orders))
	for i, activeOrder := range orders {
		item := activeOrderItem{
			ID:     activeOrder.ID.String(),
			Status: activeOrder.Status.String(),
			Pickup: geoPointBody{
				Latitude:  activeOrder.Pickup.Latitude(),
				Longitude: activeOrder.Pickup.Longitude(),
			},
			Dropoff: geoPointBody{
				Latitude:  activeOrder.Dropoff.Latitude(),
				Longitude: activeOrder.Dropoff.Longitude(),
			},
		}
		if activeOrder.RiderID != nil {
			riderID := activeOrder.RiderID.String()
			item.RiderID = &riderID
		}
		response[i] = item
	}
	return ctx.JSON(http.StatusOK, response)
}

type riderAction func(ctx context.Context, orderID, riderID kernel.UUID) error

func (s *Server) riderResponse(ctx echo.Context, action riderAction) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}
	var request riderResponseRequest
	if err := ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	riderID, err := kernel.UUIDFromString(request.RiderID)
	if err != nil {
		return badRequest(ctx, "Invalid rider id")
	}

	if err := action(ctx.Request().Context(), orderID, riderID); err != nil {
		return mapError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func toJobResponse(view dispatch.JobView) jobResponse {
	response := jobResponse{
		OrderID:        view.OrderID.String(),
		Status:         view.Status.String(),
		RetryCount:     view.RetryCount,
		CandidatesLeft: view.CandidatesLeft,
		CreatedAt:      view.CreatedAt,
		LastActionAt:   view.LastActionAt,
	}
	if view.CurrentOfferee != nil {
		offeree := view.CurrentOfferee.String()
		response.CurrentOfferee = &offeree
		expiresAt := view.OfferExpiresAt
		response.OfferExpiresAt = &expiresAt
	}
	return response
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, errorResponse{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}

func mapError(ctx echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, job.ErrStaleOffer),
		errors.Is(err, dispatch.ErrJobAlreadyExists),
		errors.Is(err, dispatch.ErrNotAssignedRider):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	return ctx.JSON(status, errorResponse{
		Code:    status,
		Message: err.Error(),
	})
}
