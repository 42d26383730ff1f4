package handler

import (
	"log/slog"
	"net/http"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/service"
)

// EmployeeResponse is the public view of an employee.
type EmployeeResponse struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	DateJoined string `json:"date_joined"`
}

func newEmployeeResponse(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		DateJoined: formatDateTime(e.DateJoined),
	}
}

type RestaurantResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DateJoined string `json:"date_joined"`
}

func newRestaurantResponse(r *domain.Restaurant) RestaurantResponse {
	return RestaurantResponse{ID: r.ID, Name: r.Name, DateJoined: formatDateTime(r.DateJoined)}
}

// EmployeeHandler serves /employee/.
type EmployeeHandler struct {
	employees *service.EmployeeService
	logger    *slog.Logger
}

func NewEmployeeHandler(employees *service.EmployeeService, logger *slog.Logger) *EmployeeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeHandler{employees: employees, logger: logger}
}

// Create handles POST /employee/
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEmployeeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	emp, err := h.employees.CreateEmployee(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]int64{"employee_id": emp.ID})
}

// Get handles GET /employee/{id}/
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Employee")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	emp, err := h.employees.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, newEmployeeResponse(emp))
}

// RestaurantHandler serves /restaurant/.
type RestaurantHandler struct {
	restaurants *service.RestaurantService
	logger      *slog.Logger
}

func NewRestaurantHandler(restaurants *service.RestaurantService, logger *slog.Logger) *RestaurantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestaurantHandler{restaurants: restaurants, logger: logger}
}

// Create handles POST /restaurant/
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRestaurantInput
	if !decodeJSON(w, r, &req) {
		return
	}
	rest, err := h.restaurants.CreateRestaurant(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]int64{"restaurant_id": rest.ID})
}

// Get handles GET /restaurant/{id}/
func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Restaurant")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rest, err := h.restaurants.GetRestaurant(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, newRestaurantResponse(rest))
}
