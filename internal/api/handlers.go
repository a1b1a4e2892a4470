package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lukman83/beast-antidetect/internal/models"
)

type targetRequest struct {
	models.LaunchSpec
	URL     string `json:"url"`
	Cookies bool   `json:"cookies"`
}

type bulkRequest struct {
	Profiles []models.LaunchSpec `json:"profiles"`
	Policy   string              `json:"policy,omitempty"`
}

type bulkResponse struct {
	Results   []models.BulkEntry   `json:"results"`
	Failures  []models.BulkFailure `json:"failures,omitempty"`
	Completed int                  `json:"completed"`
}

// fingerprint returns a generated fingerprint, or echoes a custom one posted in the body.
func (s *Server) fingerprint(c echo.Context) error {
	var candidate *models.Fingerprint
	if c.Request().ContentLength != 0 {
		candidate = new(models.Fingerprint)
		if err := c.Bind(candidate); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, s.svc.GenerateFingerprint(candidate))
}

func (s *Server) launch(c echo.Context) error {
	var spec models.LaunchSpec
	if err := c.Bind(&spec); err != nil {
		return err
	}
	res, err := s.svc.QueryIP(c.Request().Context(), spec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) snapshot(c echo.Context) error {
	req, err := bindTarget(c)
	if err != nil {
		return err
	}
	res, err := s.svc.Snapshot(c.Request().Context(), req.LaunchSpec, req.URL, req.Cookies)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) cookies(c echo.Context) error {
	req, err := bindTarget(c)
	if err != nil {
		return err
	}
	res, err := s.svc.Cookies(c.Request().Context(), req.LaunchSpec, req.URL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func bindTarget(c echo.Context) (*targetRequest, error) {
	var req targetRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	return &req, nil
}

// bulk accepts {"profiles": [...], "policy": "..."} or a bare array of
// specs, so the body is peeked before decoding.
func (s *Server) bulk(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}
	data = bytes.TrimSpace(data)

	var req bulkRequest
	switch {
	case len(data) == 0:
		return echo.NewHTTPError(http.StatusBadRequest, "profiles are required")
	case data[0] == '[':
		err = json.Unmarshal(data, &req.Profiles)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}

	policy := models.BulkPolicy(req.Policy)
	switch policy {
	case "", models.BulkAbort, models.BulkCollect:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown policy "+req.Policy)
	}

	report, err := s.svc.RunBulk(c.Request().Context(), req.Profiles, policy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bulkResponse{
		Results:   report.Results,
		Failures:  report.Failures,
		Completed: len(report.Results),
	})
}
