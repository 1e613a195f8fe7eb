package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/afyachain/medledger/internal/gateway/vault"
)

type storeRecordRequest struct {
	Payload    string `json:"payload"`
	Patient    string `json:"patient"`
	RecordType string `json:"recordType"`
}

// storeRecord writes the payload to the vault and its hash to the
// ledger. The vault key is the content hash, so a retry after a failed
// ledger write lands on the same key instead of leaking a duplicate.
func (s *Server) storeRecord(c echo.Context) error {
	var req storeRecordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Payload == "" {
		return badRequest(c, "payload is required")
	}

	hash, err := s.vault.Put([]byte(req.Payload))
	if err != nil {
		return err
	}
	if err := s.ledger.StoreRecord(c.Request().Context(), hash, req.Patient, req.RecordType); err != nil {
		return chainError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"recordHash": hash,
		"patient":    req.Patient,
		"recordType": req.RecordType,
	})
}

func (s *Server) getRecord(c echo.Context) error {
	hash := c.Param("hash")

	record, err := s.ledger.Record(c.Request().Context(), hash)
	if err != nil {
		return chainError(c, err)
	}

	response := map[string]interface{}{"record": record}
	payload, err := s.vault.Get(hash)
	switch err {
	case nil:
		response["payload"] = string(payload)
	case vault.ErrNotFound:
		// The reference is valid but the payload lives in another
		// facility's vault.
	default:
		return err
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) verifyRecord(c echo.Context) error {
	verified, err := s.ledger.VerifyRecord(c.Request().Context(), c.Param("hash"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"recordHash": c.Param("hash"),
		"verified":   verified,
	})
}

type emergencyAccessRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) emergencyAccess(c echo.Context) error {
	var req emergencyAccessRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := s.ledger.EmergencyAccess(c.Request().Context(), c.Param("hash"), req.Reason)
	if err != nil {
		return chainError(c, err)
	}

	response := map[string]interface{}{"record": record}
	payload, err := s.vault.Get(c.Param("hash"))
	if err == nil {
		response["payload"] = string(payload)
	} else if err != vault.ErrNotFound {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) emergencyLog(c echo.Context) error {
	entries, err := s.ledger.EmergencyAccessLog(c.Request().Context(), c.Param("hash"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) patientRecords(c echo.Context) error {
	hashes, err := s.ledger.PatientRecords(c.Request().Context(), c.Param("id"))
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient":      c.Param("id"),
		"recordHashes": hashes,
	})
}

type grantConsentRequest struct {
	Provider string `json:"provider"`
}

func (s *Server) grantConsent(c echo.Context) error {
	var req grantConsentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.ledger.GrantConsent(c.Request().Context(), req.Provider); err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"provider": req.Provider})
}

func (s *Server) revokeConsent(c echo.Context) error {
	if err := s.ledger.RevokeConsent(c.Request().Context(), c.Param("provider")); err != nil {
		return chainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) checkConsent(c echo.Context) error {
	patient := c.QueryParam("patient")
	provider := c.QueryParam("provider")
	if patient == "" || provider == "" {
		return badRequest(c, "patient and provider query parameters are required")
	}

	granted, err := s.ledger.HasConsent(c.Request().Context(), patient, provider)
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient":  patient,
		"provider": provider,
		"granted":  granted,
	})
}
