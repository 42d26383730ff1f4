package handler

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/service"
)

type MenuItemResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MenuResponse keeps the field order clients of the original API rely on.
type MenuResponse struct {
	ID           int64              `json:"id"`
	Items        []MenuItemResponse `json:"items"`
	Title        *string            `json:"title"`
	Notes        *string            `json:"notes"`
	LaunchDate   domain.Date        `json:"launch_date"`
	DateCreated  string             `json:"date_created"`
	LastModified string             `json:"last_modified"`
	Restaurant   int64              `json:"restaurant"`
}

func newMenuResponse(m *domain.Menu) MenuResponse {
	items := make([]MenuItemResponse, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, MenuItemResponse{ID: it.ID, Title: it.Title, Description: it.Description})
	}
	return MenuResponse{
		ID:           m.ID,
		Items:        items,
		Title:        m.Title,
		Notes:        m.Notes,
		LaunchDate:   m.LaunchDate,
		DateCreated:  m.DateCreated.UTC().Format(domain.DateLayout),
		LastModified: formatDateTime(m.LastModified),
		Restaurant:   m.RestaurantID,
	}
}

func newMenuList(menus []*domain.Menu) []MenuResponse {
	out := make([]MenuResponse, 0, len(menus))
	for _, m := range menus {
		out = append(out, newMenuResponse(m))
	}
	return out
}

// MenuHandler serves /menu/.
type MenuHandler struct {
	menus  *service.MenuService
	logger *slog.Logger
}

func NewMenuHandler(menus *service.MenuService, logger *slog.Logger) *MenuHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuHandler{menus: menus, logger: logger}
}

// Create handles POST /menu/
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMenuInput
	if !decodeJSON(w, r, &req) {
		return
	}
	menu, err := h.menus.CreateMenu(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]int64{"menu_id": menu.ID})
}

// Today handles GET /menu/
func (h *MenuHandler) Today(w http.ResponseWriter, r *http.Request) {
	menus, err := h.menus.MenusToday(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, newMenuList(menus))
}

var (
	numericKey = regexp.MustCompile(`^\d+$`)
	dateKey    = regexp.MustCompile(`^\d+-\d+-\d+$`)
)

// Get handles GET /menu/{key}/ where key is a menu id or a date.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	switch {
	case numericKey.MatchString(key):
		h.byID(w, r)
	case dateKey.MatchString(key):
		h.byDate(w, r, key)
	default:
		writeError(w, r, h.logger, domain.NotFound("Menu"))
	}
}

func (h *MenuHandler) byID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "key", "Menu")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	menu, err := h.menus.GetMenu(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, newMenuResponse(menu))
}

func (h *MenuHandler) byDate(w http.ResponseWriter, r *http.Request, raw string) {
	day, err := service.ParseDay(raw)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	menus, err := h.menus.MenusForDate(r.Context(), day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, newMenuList(menus))
}
