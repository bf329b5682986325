package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	"github.com/ikkim/annualreport-backend/internal/export"
	"github.com/ikkim/annualreport-backend/internal/middleware"
)

type SeasonController struct {
	seasonService service.SeasonService
}

func NewSeasonController(seasonService service.SeasonService) *SeasonController {
	return &SeasonController{seasonService: seasonService}
}

// GetSummary GET /api/v1/seasons/:tax_year/summary
func (ctrl *SeasonController) GetSummary(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	year, ok := parseTaxYearParam(c)
	if !ok {
		return
	}

	summary, err := ctrl.seasonService.GetSeasonSummary(c.Request.Context(), year)
	if err != nil {
		respondServiceError(c, log, err, "get season summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetKanban GET /api/v1/kanban?tax_year=
func (ctrl *SeasonController) GetKanban(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var taxYear *int
	if year := queryInt(c, "tax_year"); year > 0 {
		taxYear = &year
	}

	columns, err := ctrl.seasonService.GetKanbanView(taxYear)
	if err != nil {
		respondServiceError(c, log, err, "get kanban")
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

// Export returns a download link when the workbook went to object storage,
// otherwise streams it.
// GET /api/v1/seasons/:tax_year/export
func (ctrl *SeasonController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	year, ok := parseTaxYearParam(c)
	if !ok {
		return
	}

	result, err := ctrl.seasonService.ExportSeason(c.Request.Context(), year)
	if err != nil {
		respondServiceError(c, log, err, "export season")
		return
	}

	if result.URL != "" {
		c.JSON(http.StatusOK, result)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	c.Data(http.StatusOK, export.ContentType, result.Content)
}
