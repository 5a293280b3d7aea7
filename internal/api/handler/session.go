package handler

import (
	"errors"
	"net/http"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/service"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the wizard stages as a session resource.
type SessionHandler struct {
	pipeline *service.Pipeline
}

// NewSessionHandler creates a new session handler.
// Parameters:
//   - pipeline: pipeline orchestrator.
// Returns:
//   - *SessionHandler: initialized handler.
func NewSessionHandler(pipeline *service.Pipeline) *SessionHandler {
	return &SessionHandler{pipeline: pipeline}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session := h.pipeline.CreateSession()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"stage":      session.Stage,
	})
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.pipeline.GetSession(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SetProfile handles PUT /api/v1/sessions/:id/profile.
func (h *SessionHandler) SetProfile(c *gin.Context) {
	var profile domain.BusinessProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	session, err := h.pipeline.SetProfile(c.Param("id"), &profile)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"stage":      session.Stage,
	})
}

// GenerateIdeas handles POST /api/v1/sessions/:id/ideas.
func (h *SessionHandler) GenerateIdeas(c *gin.Context) {
	table, err := h.pipeline.GenerateIdeas(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":  len(table),
		"ideas": table,
	})
}

// GetIdeas handles GET /api/v1/sessions/:id/ideas.
func (h *SessionHandler) GetIdeas(c *gin.Context) {
	session, err := h.pipeline.GetSession(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(session.Ideas) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No idea table generated yet",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":  len(session.Ideas),
		"ideas": session.Ideas,
	})
}

// generateMemesRequest selects rows for meme generation. A null
// indices field selects every row of the current table.
type generateMemesRequest struct {
	Indices []int `json:"indices"`
}

// rowResultView is the JSON shape of one row outcome.
type rowResultView struct {
	RowIndex  int    `json:"row_index"`
	Status    string `json:"status"`
	SavedPath string `json:"saved_path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GenerateMemes handles POST /api/v1/sessions/:id/memes.
func (h *SessionHandler) GenerateMemes(c *gin.Context) {
	var req generateMemesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	results, err := h.pipeline.GenerateMemes(c.Request.Context(), c.Param("id"), req.Indices)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]rowResultView, 0, len(results))
	succeeded := 0
	for _, r := range results {
		view := rowResultView{RowIndex: r.RowIndex}
		if r.Err != nil {
			view.Status = "failed"
			view.Error = r.Err.Error()
		} else {
			view.Status = "generated"
			view.SavedPath = r.Artifact.SavedPath
			succeeded++
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"requested": len(results),
		"generated": succeeded,
		"results":   views,
	})
}

// Export handles POST /api/v1/sessions/:id/export.
func (h *SessionHandler) Export(c *gin.Context) {
	bundle, err := h.pipeline.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// DownloadWorkbook handles GET /api/v1/sessions/:id/export/workbook.
func (h *SessionHandler) DownloadWorkbook(c *gin.Context) {
	session, err := h.pipeline.GetSession(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if session.Stage != domain.StageMemesExported {
		c.JSON(http.StatusConflict, gin.H{
			"error": "No export has been produced for this session",
		})
		return
	}
	c.FileAttachment(h.pipeline.WorkbookPath(), "memes_export.xlsx")
}

// writeError maps the domain error taxonomy to HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		stageErr      *domain.StageError
		parseErr      *domain.ParseError
		remoteErr     *domain.RemoteError
		exportErr     *domain.ExportError
	)

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &stageErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &remoteErr):
		status := http.StatusBadGateway
		if remoteErr.Kind == domain.RemoteQuota {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
	case errors.As(err, &exportErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
