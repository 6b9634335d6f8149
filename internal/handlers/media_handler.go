package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/media-pipeline/internal/auth"
	"github.com/fathima-sithara/media-pipeline/internal/imagepipe"
	"github.com/fathima-sithara/media-pipeline/internal/presign"
	service "github.com/fathima-sithara/media-pipeline/internal/services"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

type Handler struct {
	verifier *auth.JWTVerifier
	svc      *service.MediaService
	log      *zap.SugaredLogger
}

func NewHandler(v *auth.JWTVerifier, svc *service.MediaService, log *zap.SugaredLogger) *Handler {
	return &Handler{verifier: v, svc: svc, log: log}
}

// RequireAuth verifies "Authorization: Bearer <token>" and stashes the
// user id for the route handlers.
func (h *Handler) RequireAuth(c *fiber.Ctx) error {
	token := c.Get("Authorization")
	if token == "" {
		return utils.JSONError(c, fiber.StatusUnauthorized, "missing auth")
	}
	token = strings.TrimPrefix(token, "Bearer ")
	userID, err := h.verifier.VerifyToken(token)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	c.Locals("user_id", userID)
	return c.Next()
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

type presignRequest struct {
	Files []utils.UploadFileSpec `json:"files"`
}

// POST /v1/posts/:postID/media/images/presign
func (h *Handler) PresignImageUploads(c *fiber.Ctx) error {
	var req presignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	uploads, err := h.svc.IssueImageUploadSlots(c.Context(), userID(c), c.Params("postID"), req.Files)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"uploads": uploads})
}

// POST /v1/posts/:postID/media/videos/presign
func (h *Handler) PresignVideoUploads(c *fiber.Ctx) error {
	var req presignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	uploads, err := h.svc.IssueVideoUploadSlots(c.Context(), userID(c), c.Params("postID"), req.Files)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"uploads": uploads})
}

type singleSlotRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	Ext         string `json:"ext"`
}

// POST /v1/account/assets/presign
func (h *Handler) PresignAccountAsset(c *fiber.Ctx) error {
	var req singleSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	up, err := h.svc.IssueAccountAssetSlot(c.Context(), userID(c), req.Kind, req.ContentType, req.Ext)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, up)
}

// POST /v1/identity/:submissionID/presign
func (h *Handler) PresignIdentityDocument(c *fiber.Ctx) error {
	var req singleSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	up, err := h.svc.IssueIdentitySlot(c.Context(), userID(c), c.Params("submissionID"), req.Kind, req.ContentType, req.Ext)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, up)
}

type multipartCreateRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// POST /v1/media/multipart/create opens a parted upload for a large raw
// video.
func (h *Handler) CreateMultipartUpload(c *fiber.Ctx) error {
	var req multipartCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	mp, err := h.svc.CreateVideoMultipart(c.Context(), userID(c), req.Filename, req.ContentType)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, mp)
}

type multipartSignPartRequest struct {
	Key        string `json:"key"`
	UploadID   string `json:"upload_id"`
	PartNumber int32  `json:"part_number"`
}

// POST /v1/media/multipart/sign-part
func (h *Handler) SignMultipartPart(c *fiber.Ctx) error {
	var req multipartSignPartRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	up, err := h.svc.SignVideoPart(c.Context(), req.Key, req.UploadID, req.PartNumber)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, up)
}

type multipartCompleteRequest struct {
	Key      string                  `json:"key"`
	UploadID string                  `json:"upload_id"`
	Parts    []storage.CompletedPart `json:"parts"`
}

// POST /v1/media/multipart/complete
func (h *Handler) CompleteMultipartUpload(c *fiber.Ctx) error {
	var req multipartCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := h.svc.CompleteVideoMultipart(c.Context(), req.Key, req.UploadID, req.Parts); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"key": req.Key})
}

// POST /v1/media/confirm
func (h *Handler) ConfirmUpload(c *fiber.Ctx) error {
	var req service.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	asset, err := h.svc.ConfirmUpload(c.Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, asset)
}

type processRequest struct {
	Mosaic  bool `json:"mosaic"`
	Regions []struct {
		X int `json:"x"`
		Y int `json:"y"`
		W int `json:"w"`
		H int `json:"h"`
	} `json:"regions"`
}

func (r processRequest) options() imagepipe.ProcessOptions {
	opts := imagepipe.ProcessOptions{Mosaic: r.Mosaic}
	for _, reg := range r.Regions {
		opts.MosaicRegions = append(opts.MosaicRegions, imagepipe.Region{X: reg.X, Y: reg.Y, W: reg.W, H: reg.H})
	}
	return opts
}

// POST /v1/assets/:id/process routes the asset to the pipeline its post
// type requires.
func (h *Handler) ProcessAsset(c *fiber.Ctx) error {
	var req processRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
		}
	}
	if err := h.svc.ProcessAsset(c.Context(), c.Params("id"), req.options()); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusAccepted, fiber.Map{"asset_id": c.Params("id")})
}

// POST /v1/assets/:id/jobs/preview
func (h *Handler) SubmitPreviewJob(c *fiber.Ctx) error {
	job, err := h.svc.SubmitPreviewJob(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, job)
}

// POST /v1/assets/:id/jobs/hls
func (h *Handler) SubmitHLSJob(c *fiber.Ctx) error {
	job, err := h.svc.SubmitHLSJob(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, job)
}

// POST /v1/jobs/notifications is the transcoder status callback.
func (h *Handler) JobNotification(c *fiber.Ctx) error {
	var n service.JobNotification
	if err := c.BodyParser(&n); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := h.svc.ApplyJobNotification(c.Context(), n); err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"applied": true})
}

// POST /v1/posts/:postID/publication-gate
func (h *Handler) RunPublicationGate(c *fiber.Ctx) error {
	promoted, err := h.svc.RunPublicationGate(c.Context(), c.Params("postID"))
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"approved": promoted})
}

// GET /v1/media/url?resource=media&key=...
func (h *Handler) GetDownloadURL(c *fiber.Ctx) error {
	res := presign.Resource(c.Query("resource", string(presign.ResourceMedia)))
	key := c.Query("key")
	if key == "" {
		return utils.JSONError(c, fiber.StatusBadRequest, "key required")
	}
	opt := storage.GetOptions{
		Inline:              c.QueryBool("inline", true),
		Filename:            c.Query("filename"),
		ContentTypeOverride: c.Query("content_type"),
	}
	dl, err := h.svc.GetDownloadURL(c.Context(), res, key, opt)
	if err != nil {
		return h.fail(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, dl)
}

// fail maps service errors to HTTP. Anything unrecognized is logged and
// hidden behind a generic 500.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return utils.JSONError(c, fiber.StatusBadRequest, verr.Error())
	}
	var rejected *imagepipe.ModerationRejectedError
	if errors.As(err, &rejected) {
		names := make([]string, len(rejected.Labels))
		for i, l := range rejected.Labels {
			names[i] = l.Name
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false, "error": "image rejected by moderation", "labels": names,
		})
	}
	switch {
	case errors.Is(err, imagepipe.ErrUnsupportedImageFormat):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, utils.ErrDuplicateJob):
		return utils.JSONError(c, fiber.StatusConflict, "job already exists for this asset")
	case errors.Is(err, utils.ErrUploadNotFound):
		return utils.JSONError(c, fiber.StatusNotFound, "uploaded object not found")
	case errors.Is(err, utils.ErrFileNotFound):
		return utils.JSONError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, utils.ErrUnknownResource):
		return utils.JSONError(c, fiber.StatusBadRequest, "unknown resource")
	}
	h.log.Errorw("request failed", "path", c.Path(), "error", err)
	return utils.JSONError(c, fiber.StatusInternalServerError, "internal error")
}

// Register mounts all routes. The notification callback is left outside
// the auth group; the provider signs with its own channel.
func (h *Handler) Register(app *fiber.App) {
	app.Post("/v1/jobs/notifications", h.JobNotification)

	v1 := app.Group("/v1", h.RequireAuth)
	v1.Post("/posts/:postID/media/images/presign", h.PresignImageUploads)
	v1.Post("/posts/:postID/media/videos/presign", h.PresignVideoUploads)
	v1.Post("/account/assets/presign", h.PresignAccountAsset)
	v1.Post("/identity/:submissionID/presign", h.PresignIdentityDocument)
	v1.Post("/media/multipart/create", h.CreateMultipartUpload)
	v1.Post("/media/multipart/sign-part", h.SignMultipartPart)
	v1.Post("/media/multipart/complete", h.CompleteMultipartUpload)
	v1.Post("/media/confirm", h.ConfirmUpload)
	v1.Post("/assets/:id/process", h.ProcessAsset)
	v1.Post("/assets/:id/jobs/preview", h.SubmitPreviewJob)
	v1.Post("/assets/:id/jobs/hls", h.SubmitHLSJob)
	v1.Post("/posts/:postID/publication-gate", h.RunPublicationGate)
	v1.Get("/media/url", h.GetDownloadURL)
}
