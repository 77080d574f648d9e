package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-invigilation-api/internal/dto"
	"github.com/noah-isme/sma-invigilation-api/internal/middleware"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/internal/service"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
	"github.com/noah-isme/sma-invigilation-api/pkg/response"
)

const defaultMaxUploadMB = 10

type rosterService interface {
	Generate(ctx context.Context, req dto.GenerateRosterRequest) (*dto.GenerateRosterResponse, error)
	Upload(ctx context.Context, upload service.RosterUpload) (*dto.GenerateRosterResponse, error)
	GetProposal(ctx context.Context, id string) (*dto.GenerateRosterResponse, error)
	Save(ctx context.Context, req dto.SaveRosterRequest, actorID string) (*models.Roster, error)
	List(ctx context.Context, query dto.RosterQuery) ([]models.Roster, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.RosterDetailResponse, error)
	Publish(ctx context.Context, id string) (*models.Roster, error)
	Delete(ctx context.Context, id string) error
	FlushCache(ctx context.Context) error
}

// InvigilationHandler exposes roster generation and roster management.
type InvigilationHandler struct {
	service     rosterService
	maxUploadMB int64
}

// NewInvigilationHandler constructs the handler.
func NewInvigilationHandler(svc *service.InvigilationService, maxUploadMB int64) *InvigilationHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = defaultMaxUploadMB
	}
	return &InvigilationHandler{service: svc, maxUploadMB: maxUploadMB}
}

// Generate godoc
// @Summary Generate a supervisor roster proposal
// @Description Runs the assignment engine over JSON supervisor and session tables. Shortages are reported, not rejected.
// @Tags Invigilation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRosterRequest true "Supervisors, sessions and policy overrides"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /invigilation/generate [post]
func (h *InvigilationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	proposal, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProposal(c, proposal)
}

// Upload godoc
// @Summary Generate a roster proposal from uploaded tables
// @Description Accepts CSV or XLSX files. The sessions file may use the wide ministry timetable layout.
// @Tags Invigilation
// @Accept multipart/form-data
// @Produce json
// @Param supervisors formData file true "Supervisors table"
// @Param sessions formData file true "Exam timetable"
// @Param sections formData file false "Grade sections table"
// @Param level formData string false "Restrict the run to one grade"
// @Param layout formData string false "long or wide"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /invigilation/upload [post]
func (h *InvigilationHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadMB<<20)
	if err := c.Request.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "upload exceeds the size limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload"))
		return
	}

	var form dto.UploadRosterForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload fields"))
		return
	}

	upload := service.RosterUpload{Form: form}
	var files []multipart.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	open := func(field string, required bool) (*service.UploadedTable, error) {
		header, err := c.FormFile(field)
		if err != nil {
			if !required && errors.Is(err, http.ErrMissingFile) {
				return nil, nil
			}
			return nil, appErrors.Clone(appErrors.ErrValidation, field+" file is required")
		}
		file, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read "+field+" file")
		}
		files = append(files, file)
		return &service.UploadedTable{Filename: header.Filename, Reader: file}, nil
	}

	supervisors, err := open("supervisors", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := open("sessions", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	sections, err := open("sections", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	upload.Supervisors = *supervisors
	upload.Sessions = *sessions
	upload.Sections = sections

	proposal, err := h.service.Upload(c.Request.Context(), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProposal(c, proposal)
}

// GetProposal godoc
// @Summary Fetch an unsaved roster proposal
// @Tags Invigilation
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invigilation/proposals/{id} [get]
func (h *InvigilationHandler) GetProposal(c *gin.Context) {
	proposal, err := h.service.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProposal(c, proposal)
}

// Save godoc
// @Summary Save a proposal as a draft roster
// @Tags Invigilation
// @Accept json
// @Produce json
// @Param payload body dto.SaveRosterRequest true "Proposal to persist"
// @Success 201 {object} response.Envelope
// @Router /invigilation/rosters [post]
func (h *InvigilationHandler) Save(c *gin.Context) {
	var req dto.SaveRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	roster, err := h.service.Save(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, roster)
}

// List godoc
// @Summary List saved rosters
// @Tags Invigilation
// @Produce json
// @Param status query string false "DRAFT or PUBLISHED"
// @Param level query string false "Grade filter"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /invigilation/rosters [get]
func (h *InvigilationHandler) List(c *gin.Context) {
	var query dto.RosterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	rosters, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rosters, pagination)
}

// Get godoc
// @Summary Roster detail with assignments, shortages, statistics and daily sheets
// @Tags Invigilation
// @Produce json
// @Param id path string true "Roster ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invigilation/rosters/{id} [get]
func (h *InvigilationHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Publish godoc
// @Summary Publish a draft roster
// @Tags Invigilation
// @Produce json
// @Param id path string true "Roster ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /invigilation/rosters/{id}/publish [patch]
func (h *InvigilationHandler) Publish(c *gin.Context) {
	roster, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Delete godoc
// @Summary Delete a draft roster
// @Tags Invigilation
// @Param id path string true "Roster ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /invigilation/rosters/{id} [delete]
func (h *InvigilationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FlushCache godoc
// @Summary Drop cached runs and proposals
// @Tags Invigilation
// @Success 204
// @Failure 503 {object} response.Envelope
// @Router /invigilation/cache [delete]
func (h *InvigilationHandler) FlushCache(c *gin.Context) {
	if err := h.service.FlushCache(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *InvigilationHandler) respondProposal(c *gin.Context, proposal *dto.GenerateRosterResponse) {
	middleware.SetCacheHit(c, proposal.CacheHit)
	middleware.SetFingerprint(c, proposal.Fingerprint)
	response.JSON(c, http.StatusOK, proposal, nil, middleware.ExtractMeta(c))
}
