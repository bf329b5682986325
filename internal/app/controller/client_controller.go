package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	apperrors "github.com/ikkim/annualreport-backend/internal/errors"
	"github.com/ikkim/annualreport-backend/internal/middleware"
)

type ClientController struct {
	clientService service.ClientService
}

func NewClientController(clientService service.ClientService) *ClientController {
	return &ClientController{clientService: clientService}
}

type CreateClientRequest struct {
	Name  string `json:"name" binding:"required"`
	TaxID string `json:"tax_id" binding:"required"`
	Email string `json:"email"`
}

// CreateClient POST /api/v1/clients
func (ctrl *ClientController) CreateClient(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Client name and tax id are required")
		return
	}

	client, err := ctrl.clientService.CreateClient(req.Name, req.TaxID, req.Email)
	if err != nil {
		respondServiceError(c, log, err, "create client")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

// ListClients GET /api/v1/clients?search=&page=&page_size=
func (ctrl *ClientController) ListClients(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, err := ctrl.clientService.ListClients(c.Query("search"), queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		respondServiceError(c, log, err, "list clients")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetClient GET /api/v1/clients/:id
func (ctrl *ClientController) GetClient(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	client, err := ctrl.clientService.GetClient(id)
	if err != nil {
		respondServiceError(c, log, err, "get client")
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}
