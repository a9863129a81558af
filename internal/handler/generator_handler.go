package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/service"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

const maxRequirements = 256

type timetableGenerator interface {
	Preview(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error)
	Commit(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error)
}

// GeneratorHandler exposes the weekly timetable generator.
type GeneratorHandler struct {
	service timetableGenerator
}

// NewGeneratorHandler constructs the handler.
func NewGeneratorHandler(svc *service.GeneratorService) *GeneratorHandler {
	return &GeneratorHandler{service: svc}
}

// Preview godoc
// @Summary Preview a generated week
// @Description Places the requirements first-fit in input order without persisting anything.
// @Tags Generator
// @Accept json
// @Produce json
// @Param payload body models.GenerateRequest true "Requirements"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /generator/preview [post]
func (h *GeneratorHandler) Preview(c *gin.Context) {
	h.handle(c, "preview", h.service.Preview)
}

// Commit godoc
// @Summary Generate and persist a week
// @Description Regenerates under resource locks, re-validates every placed session and persists them in one transaction.
// @Tags Generator
// @Accept json
// @Produce json
// @Param payload body models.GenerateRequest true "Requirements"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /generator/commit [post]
func (h *GeneratorHandler) Commit(c *gin.Context) {
	h.handle(c, "commit", h.service.Commit)
}

func (h *GeneratorHandler) handle(c *gin.Context, mode string, run func(context.Context, models.GenerateRequest) (*models.GenerateResult, error)) {
	var req models.GenerateRequest
	if !bindJSON(c, &req, "invalid generate payload") {
		return
	}
	if len(req.Requirements) > maxRequirements {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "requirements exceed the supported limit"))
		return
	}
	result, err := run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Committed {
		status = http.StatusCreated
		middleware.AddAuditDetail(c, "week_start", models.DateKey(result.WeekStart))
		middleware.AddAuditDetail(c, "placed", result.Placed)
	}
	response.JSON(c, status, result, map[string]interface{}{"mode": mode})
}
