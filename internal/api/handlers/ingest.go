package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/services/ingest"
)

type IngestHandler struct {
	service       *ingest.Service
	maxUploadSize int64
}

func NewIngestHandler(service *ingest.Service, maxUploadSize int64) *IngestHandler {
	return &IngestHandler{service: service, maxUploadSize: maxUploadSize}
}

// IngestVideo godoc
// @Summary Ingest a video
// @Description Store an uploaded video, select frames with significant motion and publish them to the detection agents
// @Tags ingest
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Video file"
// @Param camera_id formData string true "Camera ID"
// @Param location formData string false "Location override"
// @Param zone_id formData string false "Zone override"
// @Success 200 {object} ingest.Response
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /ingest [post]
func (h *IngestHandler) IngestVideo(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	cameraID := c.PostForm("camera_id")
	if cameraID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "camera_id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "video file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read video file"})
		return
	}
	defer file.Close()

	logging.SetCamera(c, cameraID)
	resp, err := h.service.Ingest(c.Request.Context(), ingest.Request{
		CameraID:    cameraID,
		Location:    c.PostForm("location"),
		ZoneID:      c.PostForm("zone_id"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Video:       file,
	})
	switch {
	case errors.Is(err, ingest.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, ingest.ErrUndecodable):
		logging.Warn(c).Err(err).Msg("Uploaded video could not be decoded")
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		logging.Error(c).Err(err).Msg("Failed to ingest video")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
