package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"doc2txt/internal/client"
	"doc2txt/internal/jobs"
	"doc2txt/internal/lifecycle"
	"doc2txt/internal/render"
)

func coordinatorFrom(c *fiber.Ctx) Coordinator {
	coord, _ := c.Locals("coordinator").(Coordinator)
	return coord
}

func viewFrom(c *fiber.Ctx) *View {
	view, _ := c.Locals("view").(*View)
	return view
}

func notConfigured(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Success: false,
		Code:    "INTERNAL_ERROR",
		Error:   "coordinator not configured",
	})
}

func stateHandler(c *fiber.Ctx) error {
	coord := coordinatorFrom(c)
	view := viewFrom(c)
	if coord == nil || view == nil {
		return notConfigured(c)
	}
	return c.JSON(StateResponse{
		Success: true,
		State:   string(coord.Snapshot().State),
		View:    view.State(),
	})
}

func submitHandler(c *fiber.Ctx) error {
	coord := coordinatorFrom(c)
	if coord == nil {
		return notConfigured(c)
	}

	mode := c.FormValue("mode", string(jobs.ModeFast))

	var upload client.Upload
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "could not read uploaded file",
			})
		}
		defer f.Close()

		ct := fh.Header.Get(fiber.HeaderContentType)
		if ct == "" || ct == "application/octet-stream" {
			ct = client.DetectContentType(fh.Filename, nil)
		}
		upload = client.Upload{
			Name:        fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Body:        f,
		}
	}

	id, err := coord.Submit(c.UserContext(), upload, mode)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{Success: true, RequestID: id})
}

func cancelHandler(c *fiber.Ctx) error {
	coord := coordinatorFrom(c)
	if coord == nil {
		return notConfigured(c)
	}
	if err := coord.Cancel(c.UserContext()); err != nil {
		return lifecycleError(c, err)
	}
	return stateHandler(c)
}

func resetHandler(c *fiber.Ctx) error {
	coord := coordinatorFrom(c)
	if coord == nil {
		return notConfigured(c)
	}
	if err := coord.Reset(); err != nil {
		return lifecycleError(c, err)
	}
	return stateHandler(c)
}

// resultHandler downloads the extracted text as a markdown file.
func resultHandler(c *fiber.Ctx) error {
	view := viewFrom(c)
	if view == nil {
		return notConfigured(c)
	}
	state := view.State()
	if state.Section != SectionResults {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "RESULT_NOT_READY",
			Error:   "Result not ready",
		})
	}
	c.Attachment(render.DefaultResultName)
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(state.Result)
}

// lifecycleError maps coordinator errors to HTTP responses.
func lifecycleError(c *fiber.Ctx, err error) error {
	var (
		verr *lifecycle.ValidationError
		cerr *client.Error
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "VALIDATION_ERROR",
			Error:   verr.Message,
		})
	case errors.Is(err, lifecycle.ErrBusy),
		errors.Is(err, lifecycle.ErrNotIdle),
		errors.Is(err, lifecycle.ErrNotPolling):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    "CONFLICT",
			Error:   err.Error(),
		})
	case errors.As(err, &cerr):
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Success: false,
			Code:    "UPSTREAM_ERROR",
			Error:   cerr.Error(),
		})
	}

	if logger, ok := c.Locals("logger").(*slog.Logger); ok {
		logger.Error("http.lifecycle_error", "request_id", c.Locals("request_id"), "error", err)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Success: false,
		Code:    "INTERNAL_ERROR",
		Error:   err.Error(),
	})
}
