package gallery

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/boxgallery/service/internal/response"
	"github.com/boxgallery/service/internal/upload"
)

// Handler holds HTTP handlers for the gallery endpoints.
type Handler struct {
	svc      *Service
	receiver *upload.Receiver
}

// NewHandler creates a new gallery Handler.
func NewHandler(svc *Service, receiver *upload.Receiver) *Handler {
	return &Handler{svc: svc, receiver: receiver}
}

// Mount registers the gallery routes on r. uploadMW wraps only POST /upload.
func (h *Handler) Mount(r chi.Router, uploadMW ...func(http.Handler) http.Handler) {
	r.With(uploadMW...).Post("/upload", h.Upload)
	r.Get("/boxes", h.ListBoxes)
	r.Get("/images/{boxId}", h.ListImages)
}

type uploadResponse struct {
	Success  bool   `json:"success"   example:"true"`
	URL      string `json:"url"       example:"https://res.cloudinary.com/demo/image/upload/v1/2024-05-01/abc.jpg"`
	PublicID string `json:"public_id" example:"2024-05-01/abc"`
	Date     string `json:"date"      example:"2024-05-01"`
}

type boxesResponse struct {
	Success bool     `json:"success" example:"true"`
	Boxes   []Folder `json:"boxes"`
}

type imagesResponse struct {
	Success bool          `json:"success" example:"true"`
	Images  []ImageRecord `json:"images"`
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Stores the image with the media provider in the folder named by date (or boxId). The date is echoed back so clients can update without reloading.
//	@Tags			gallery
//	@Accept			mpfd
//	@Produce		json
//	@Param			image	formData	file	true	"Image file"
//	@Param			date	formData	string	false	"Folder key, e.g. 2024-05-01"
//	@Param			boxId	formData	string	false	"Folder key used when date is absent"
//	@Success		200		{object}	uploadResponse
//	@Failure		400		{object}	response.Failure
//	@Failure		401		{object}	response.Failure
//	@Failure		413		{object}	response.Failure
//	@Failure		500		{object}	response.Failure
//	@Failure		503		{object}	response.Failure
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	file, values, err := h.receiver.Receive(w, r, "image")
	if err != nil {
		logger.Warn().Err(err).Msg("could not receive upload")
		if errors.Is(err, upload.ErrTooLarge) {
			response.TooLarge(w, err.Error())
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	folderKey := values.Get("date")
	if folderKey == "" {
		folderKey = values.Get("boxId")
	}
	logger.Debug().Str("date", folderKey).Bool("file", file != nil).Msg("upload endpoint hit")

	res, err := h.svc.SubmitUpload(r.Context(), file, folderKey)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.OK(w, uploadResponse{
		Success:  true,
		URL:      res.URL,
		PublicID: res.PublicID,
		Date:     res.FolderKey,
	})
}

// ListBoxes godoc
//
//	@Summary		List boxes
//	@Description	Returns every top-level folder. id and date both carry the folder name.
//	@Tags			gallery
//	@Produce		json
//	@Success		200	{object}	boxesResponse
//	@Failure		500	{object}	response.Failure
//	@Router			/boxes [get]
func (h *Handler) ListBoxes(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.ListFolders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, boxesResponse{Success: true, Boxes: folders})
}

// ListImages godoc
//
//	@Summary		List images in a box
//	@Description	Returns up to 200 images stored in the folder, in provider order.
//	@Tags			gallery
//	@Produce		json
//	@Param			boxId	path		string	true	"Folder key"
//	@Success		200		{object}	imagesResponse
//	@Failure		400		{object}	response.Failure
//	@Failure		500		{object}	response.Failure
//	@Router			/images/{boxId} [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	boxID := chi.URLParam(r, "boxId")
	zerolog.Ctx(r.Context()).Debug().Str("box", boxID).Msg("fetching images for box")

	images, err := h.svc.ListImages(r.Context(), boxID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, imagesResponse{Success: true, Images: images})
}

// fail maps a service error onto the response contract and logs it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var (
		ve *ValidationError
		pe *ProviderError
	)
	switch {
	case errors.As(err, &ve):
		logger.Warn().Str("reason", ve.Message).Msg("rejected request")
		response.BadRequest(w, ve.Message)
	case errors.As(err, &pe):
		logger.Error().Err(pe.Err).Str("op", pe.Op).Msg("provider call failed")
		response.InternalError(w, pe.Error())
	case errors.Is(err, ErrBusy):
		logger.Warn().Err(err).Msg("upload not admitted")
		response.ServiceUnavailable(w, ErrBusy.Error())
	default:
		logger.Error().Err(err).Msg("request failed")
		response.InternalError(w, err.Error())
	}
}
