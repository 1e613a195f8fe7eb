// Package server exposes the ledger over HTTP for clinic and mobile
// clients that cannot hold Fabric identities themselves.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/afyachain/medledger/internal/gateway/ledger"
	"github.com/afyachain/medledger/internal/gateway/vault"
)

type Server struct {
	echo   *echo.Echo
	ledger ledger.Ledger
	vault  *vault.Vault
	logger zerolog.Logger
}

// openRoute reports whether a route skips bearer-token auth. Alert
// reporting mirrors the chaincode's open counterfeit reporting;
// verification is the public product check behind QR codes on packs.
func openRoute(c echo.Context) bool {
	switch c.Request().Method + " " + c.Path() {
	case "POST /api/medicines/:id/alerts",
		"GET /api/records/:hash/verify":
		return true
	}
	return false
}

func New(l ledger.Ledger, v *vault.Vault, jwtSecret []byte, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, ledger: l, vault: v, logger: logger}

	e.Use(Recovery(logger))
	e.Use(RequestID())
	e.Use(Logger(logger))

	e.GET("/healthz", s.health)

	api := e.Group("/api")
	if len(jwtSecret) > 0 {
		api.Use(JWT(jwtSecret, openRoute))
	}

	api.POST("/records", s.storeRecord)
	api.GET("/records/:hash", s.getRecord)
	api.GET("/records/:hash/verify", s.verifyRecord)
	api.POST("/records/:hash/emergency-access", s.emergencyAccess)
	api.GET("/records/:hash/emergency-log", s.emergencyLog)
	api.GET("/patients/:id/records", s.patientRecords)

	api.POST("/consents", s.grantConsent)
	api.DELETE("/consents/:provider", s.revokeConsent)
	api.GET("/consents/check", s.checkConsent)

	api.POST("/medicines", s.registerMedicine)
	api.GET("/medicines/:id", s.getMedicine)
	api.POST("/medicines/:id/deactivate", s.deactivateMedicine)

	api.POST("/batches", s.createBatch)
	api.GET("/batches/:id", s.getBatch)
	api.POST("/batches/:id/distribute", s.distributeBatch)
	api.POST("/batches/:id/transfer", s.transferBatch)
	api.POST("/batches/:id/recall", s.recallBatch)
	api.GET("/batches/:id/history", s.batchHistory)

	api.POST("/medicines/:id/verifications", s.verifyMedicine)
	api.GET("/medicines/:id/verifications", s.verificationHistory)
	api.POST("/medicines/:id/alerts", s.reportCounterfeit)
	api.GET("/medicines/:id/alerts", s.counterfeitAlerts)
	api.POST("/medicines/:id/alerts/:seq/resolve", s.resolveAlert)

	api.GET("/status", s.status)

	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := s.ledger.Owner(ctx)
	if err != nil {
		return chainError(c, err)
	}
	stats, err := s.ledger.VerificationStats(ctx)
	if err != nil {
		return chainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"owner":              owner,
		"totalVerifications": stats.TotalVerifications,
		"totalAlerts":        stats.TotalAlerts,
	})
}
