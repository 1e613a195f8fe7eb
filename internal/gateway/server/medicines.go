package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/afyachain/medledger/internal/gateway/ledger"
)

func (s *Server) registerMedicine(c echo.Context) error {
	var req ledger.RegisterMedicineParams
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.RegisterMedicine(c.Request().Context(), req); err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"medicineId": req.MedicineID})
}

func (s *Server) getMedicine(c echo.Context) error {
	medicine, err := s.ledger.Medicine(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, medicine)
}

func (s *Server) deactivateMedicine(c echo.Context) error {
	if err := s.ledger.DeactivateMedicine(c.Request().Context(), c.Param("id")); err != nil {
		return chainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type createBatchRequest struct {
	BatchID    string `json:"batchId"`
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

func (s *Server) createBatch(c echo.Context) error {
	var req createBatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.CreateBatch(c.Request().Context(), req.BatchID, req.MedicineID, req.Quantity); err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"batchId": req.BatchID})
}

func (s *Server) getBatch(c echo.Context) error {
	batch, err := s.ledger.Batch(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, batch)
}

type distributeBatchRequest struct {
	Recipient string `json:"recipient"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) distributeBatch(c echo.Context) error {
	var req distributeBatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.DistributeBatch(c.Request().Context(), c.Param("id"), req.Recipient, req.Quantity); err != nil {
		return chainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type transferBatchRequest struct {
	NewHolder string `json:"newHolder"`
}

func (s *Server) transferBatch(c echo.Context) error {
	var req transferBatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.TransferBatchCustody(c.Request().Context(), c.Param("id"), req.NewHolder); err != nil {
		return chainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type recallBatchRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) recallBatch(c echo.Context) error {
	var req recallBatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.RecallBatch(c.Request().Context(), c.Param("id"), req.Reason); err != nil {
		return chainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) batchHistory(c echo.Context) error {
	history, err := s.ledger.BatchHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

type verifyMedicineRequest struct {
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

func (s *Server) verifyMedicine(c echo.Context) error {
	var req verifyMedicineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	authentic, err := s.ledger.VerifyMedicine(c.Request().Context(), c.Param("id"), req.Location, req.Notes)
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"medicineId": c.Param("id"),
		"authentic":  authentic,
	})
}

func (s *Server) verificationHistory(c echo.Context) error {
	entries, err := s.ledger.VerificationHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

type reportCounterfeitRequest struct {
	AlertType   string `json:"alertType"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// reportCounterfeit is an open route: counterfeit reports come from the
// public, so neither the gateway nor the chaincode demands credentials.
func (s *Server) reportCounterfeit(c echo.Context) error {
	var req reportCounterfeitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.ReportCounterfeit(c.Request().Context(), c.Param("id"), req.AlertType, req.Description, req.Location); err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"medicineId": c.Param("id"),
		"alertType":  req.AlertType,
	})
}

func (s *Server) counterfeitAlerts(c echo.Context) error {
	alerts, err := s.ledger.CounterfeitAlerts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, alerts)
}

type resolveAlertRequest struct {
	Resolution string `json:"resolution"`
}

func (s *Server) resolveAlert(c echo.Context) error {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil {
		return badRequest(c, "alert sequence must be a number")
	}
	var req resolveAlertRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.ResolveAlert(c.Request().Context(), c.Param("id"), seq, req.Resolution); err != nil {
		return chainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
