package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hushenglang/investment-dashboard/internal/common"
	"github.com/hushenglang/investment-dashboard/internal/macro"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *macro.Service) {
	api := app.Group("/api/indicators")

	api.Get("/us", func(c *fiber.Ctx) error {
		return regionIndicators(c, service, macro.RegionUS)
	})

	api.Get("/china", func(c *fiber.Ctx) error {
		return regionIndicators(c, service, macro.RegionChina)
	})

	api.Post("/fetch-store-all-macro-indices", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bindBody(c, service.DefaultWindow); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		results, err := service.FetchAndStoreAll(c.UserContext(), req.StartDate, req.EndDate)
		if err != nil {
			if errors.Is(err, macro.ErrFetchInProgress) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
				"results": results,
			})
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"results": results,
		})
	})

	api.Post("/fetch-store/:family", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bindBody(c, service.DefaultWindow); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		family := c.Params("family")
		if err := service.FetchAndStore(c.UserContext(), family, req.StartDate, req.EndDate); err != nil {
			return toFiberError(err, "failed to fetch and store "+family)
		}

		return c.JSON(fiber.Map{
			"status": "success",
			"family": family,
		})
	})

	api.Get("/records/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a positive integer")
		}

		rec, err := service.GetIndicator(c.UserContext(), id)
		if err != nil {
			return recordError(err, "failed to load indicator")
		}
		return c.JSON(rec)
	})

	api.Patch("/records/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a positive integer")
		}

		var req updateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		upd, err := req.toUpdate()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := service.UpdateIndicator(c.UserContext(), id, upd)
		if err != nil {
			return recordError(err, "failed to update indicator")
		}
		return c.JSON(rec)
	})

	api.Get("/:region/history", func(c *fiber.Ctx) error {
		region, err := macro.ParseRegion(c.Params("region"))
		if err != nil {
			return toFiberError(err, "")
		}

		var req rangeQuery
		if err := req.bindQuery(c, service.DefaultWindow); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		history, err := service.GetIndicatorHistory(c.UserContext(), region, req.StartDate, req.EndDate)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch indicator history")
		}

		return c.JSON(fiber.Map{
			"indicators": history,
			"status":     "success",
		})
	})

	api.Get("/:region/latest", func(c *fiber.Ctx) error {
		region, err := macro.ParseRegion(c.Params("region"))
		if err != nil {
			return toFiberError(err, "")
		}

		latest, err := service.GetLatestIndicators(c.UserContext(), region)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest indicators")
		}

		return c.JSON(fiber.Map{
			"indicators": latest,
			"status":     "success",
		})
	})
}

func regionIndicators(c *fiber.Ctx, service *macro.Service, region macro.Region) error {
	var req rangeQuery
	if err := req.bindQuery(c, service.DefaultWindow); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	indicators, err := service.GetAllIndicators(c.UserContext(), region, req.StartDate, req.EndDate)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch indicators")
	}

	return c.JSON(fiber.Map{
		"indicators": indicators,
		"status":     "success",
	})
}

// toFiberError maps service errors to HTTP status codes. msg replaces the
// error text for unexpected failures.
func toFiberError(err error, msg string) error {
	switch {
	case errors.Is(err, macro.ErrUnknownFamily), errors.Is(err, macro.ErrUnknownRegion):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, macro.ErrInvalidUpdate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, macro.ErrFetchInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if msg == "" {
		msg = err.Error()
	}
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

// recordError is toFiberError for the record endpoints, where a missing
// indicator is the caller's addressing mistake.
func recordError(err error, msg string) error {
	if errors.Is(err, macro.ErrIndicatorNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return toFiberError(err, msg)
}

// rangeQuery holds the date window of a request.
type rangeQuery struct {
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtefield=StartDate"`
}

// rangeBody is the JSON body accepted by the fetch endpoints.
type rangeBody struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (q *rangeQuery) bindQuery(c *fiber.Ctx, defaults func() (time.Time, time.Time)) error {
	return q.bind(c.Query("start_date"), c.Query("end_date"), defaults)
}

// bindBody reads the window from a JSON body, falling back to query
// parameters when the body is empty.
func (q *rangeQuery) bindBody(c *fiber.Ctx, defaults func() (time.Time, time.Time)) error {
	if len(c.Body()) == 0 {
		return q.bindQuery(c, defaults)
	}
	var body rangeBody
	if err := c.BodyParser(&body); err != nil {
		return errors.New("invalid request body")
	}
	return q.bind(body.StartDate, body.EndDate, defaults)
}

func (q *rangeQuery) bind(startStr, endStr string, defaults func() (time.Time, time.Time)) error {
	start, end := defaults()

	if startStr != "" {
		ts, err := parseTime(startStr, false)
		if err != nil {
			return err
		}
		start = ts
	}
	if endStr != "" {
		ts, err := parseTime(endStr, true)
		if err != nil {
			return err
		}
		end = ts
	}

	q.StartDate = start
	q.EndDate = end
	if err := validate.Struct(q); err != nil {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// parseTime accepts YYYY-MM-DD, RFC3339 or unix seconds. A bare date used as
// an upper bound covers the whole day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			return common.EndOfDay(ts), nil
		}
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use YYYY-MM-DD, RFC3339 or unix seconds")
}

// updateRequest is the body of a record update. Omitted fields are kept.
type updateRequest struct {
	Name               *string  `json:"name"`
	Value              *float64 `json:"value"`
	DateTime           *string  `json:"date_time"`
	IsLeadingIndicator *bool    `json:"is_leading_indicator"`
	Region             *string  `json:"region"`
}

func (r updateRequest) toUpdate() (macro.IndicatorUpdate, error) {
	upd := macro.IndicatorUpdate{
		Name:               r.Name,
		Value:              r.Value,
		IsLeadingIndicator: r.IsLeadingIndicator,
	}
	if r.DateTime != nil {
		ts, err := parseTime(*r.DateTime, false)
		if err != nil {
			return upd, err
		}
		upd.DateTime = &ts
	}
	if r.Region != nil {
		region, err := macro.ParseRegion(*r.Region)
		if err != nil {
			return upd, err
		}
		upd.Region = &region
	}
	return upd, nil
}
