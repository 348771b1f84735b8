package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/platform/media"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/labstack/echo/v4"
)

// maxUploadMemory is how much of a multipart body is kept in memory before spilling to disk
const maxUploadMemory = 32 << 20

// Uploader publishes media picked on the renderer side
type Uploader interface {
	CreatePost(ctx context.Context, files []platform.MediaFile, caption string) (models.Post, error)
	CreateStory(ctx context.Context, file platform.MediaFile) (models.Story, error)
	ChangeProfilePhoto(ctx context.Context, file platform.MediaFile) (platform.Principal, error)
}

// MediaHandler handles multipart uploads for posts, stories and profile photos
type MediaHandler struct {
	uploader Uploader
	log      logger.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(uploader Uploader, log logger.Logger) *MediaHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MediaHandler{uploader: uploader, log: log.WithComponent("handlers/media")}
}

// RegisterMediaRoutes registers upload routes for the signed-in principal, behind the limiter
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group, requireAuth, limit echo.MiddlewareFunc) {
	g.POST("/posts", h.CreatePost, requireAuth, limit)
	g.POST("/stories", h.CreateStory, requireAuth, limit)
	g.PUT("/me/photo", h.ChangePhoto, requireAuth, limit)
}

// CreatePost uploads the "images" files and creates a post with the "caption" field
func (h *MediaHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Expected a multipart form")
	}
	files, err := mediaFiles(form.File["images"])
	if err != nil {
		return err
	}

	post, err := h.uploader.CreatePost(c.Request().Context(), files, req.Caption)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// CreateStory uploads the "image" file as a story
func (h *MediaHandler) CreateStory(c echo.Context) error {
	file, err := h.single(c)
	if err != nil {
		return err
	}
	story, err := h.uploader.CreateStory(c.Request().Context(), file)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, story)
}

// ChangePhoto replaces the signed-in user's profile photo with the "image" file
func (h *MediaHandler) ChangePhoto(c echo.Context) error {
	file, err := h.single(c)
	if err != nil {
		return err
	}
	p, err := h.uploader.ChangeProfilePhoto(c.Request().Context(), file)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *MediaHandler) single(c echo.Context) (platform.MediaFile, error) {
	if err := c.Request().ParseMultipartForm(maxUploadMemory); err != nil {
		return platform.MediaFile{}, echo.NewHTTPError(http.StatusBadRequest, "Expected a multipart form")
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return platform.MediaFile{}, echo.NewHTTPError(http.StatusBadRequest, "Missing image file")
	}
	files, err := mediaFiles([]*multipart.FileHeader{fh})
	if err != nil {
		return platform.MediaFile{}, err
	}
	return files[0], nil
}

func mediaFiles(headers []*multipart.FileHeader) ([]platform.MediaFile, error) {
	files := make([]platform.MediaFile, 0, len(headers))
	for _, fh := range headers {
		f, err := media.FromUpload(fh)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		files = append(files, f)
	}
	return files, nil
}
