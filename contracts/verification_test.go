package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyachain/medledger/ledgererr"
	"github.com/afyachain/medledger/models"
)

func TestVerifyMedicineVerifierOnly(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	registerParacetamol(t, f)

	_, err := f.verification.VerifyMedicine(f.ledger.As(outsider), "PARA-500", "border post", "")
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))

	f.authorizeVerifier(t, verifier)
	authentic, err := f.verification.VerifyMedicine(f.ledger.As(verifier), "PARA-500", "border post", "seal intact")
	require.NoError(t, err)
	assert.True(t, authentic)

	payload := eventPayload(t, f.ledger.LastEvent())
	assert.Equal(t, "MEDICINE_VERIFIED", payload["eventType"])
	assert.Equal(t, true, payload["authentic"])
	assert.Equal(t, verifier, payload["verifier"])
}

func TestVerifyMedicineRecordsNegativeOutcome(t *testing.T) {
	f := newFixture(t)
	f.authorizeVerifier(t, verifier)

	authentic, err := f.verification.VerifyMedicine(f.ledger.As(verifier), "FAKE-999", "street market", "suspicious packaging")
	require.NoError(t, err)
	assert.False(t, authentic)

	// The failed lookup is part of the forensic record
	history, err := f.verification.GetVerificationHistory(f.ledger.As(outsider), "FAKE-999")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Authentic)
	assert.Equal(t, verifier, history[0].Verifier)
	assert.Equal(t, "street market", history[0].Location)
	assert.Equal(t, 1, history[0].Seq)
}

func TestVerifyDeactivatedMedicineNotAuthentic(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	f.authorizeVerifier(t, verifier)
	registerParacetamol(t, f)
	require.NoError(t, f.medicine.DeactivateMedicine(f.ledger.As(manufacturer), "PARA-500"))

	authentic, err := f.verification.VerifyMedicine(f.ledger.As(verifier), "PARA-500", "warehouse", "")
	require.NoError(t, err)
	assert.False(t, authentic)
}

func TestVerificationHistoryOrdered(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	f.authorizeVerifier(t, verifier)
	registerParacetamol(t, f)

	locations := []string{"Nairobi depot", "Mombasa port", "Kisumu pharmacy"}
	for _, loc := range locations {
		_, err := f.verification.VerifyMedicine(f.ledger.As(verifier), "PARA-500", loc, "")
		require.NoError(t, err)
	}

	history, err := f.verification.GetVerificationHistory(f.ledger.As(outsider), "PARA-500")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, entry := range history {
		assert.Equal(t, i+1, entry.Seq)
		assert.Equal(t, locations[i], entry.Location)
	}
}

func TestReportCounterfeitRequiresNoRole(t *testing.T) {
	f := newFixture(t)

	// mallory holds no role at all and can still file a report
	require.NoError(t, f.verification.ReportCounterfeit(f.ledger.As(outsider),
		"PARA-500", models.AlertTypeSuspectedFake, "blister pack misspells the brand", "Eastleigh market"))

	alerts, err := f.verification.GetCounterfeitAlerts(f.ledger.As(outsider), "PARA-500")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, outsider, alerts[0].Reporter)
	assert.Equal(t, models.AlertTypeSuspectedFake, alerts[0].AlertType)
	assert.False(t, alerts[0].Investigated)

	payload := eventPayload(t, f.ledger.LastEvent())
	assert.Equal(t, "ALERT_RAISED", payload["eventType"])
	assert.Equal(t, outsider, payload["reporter"])
}

func TestReportCounterfeitNeverConsultsPolicy(t *testing.T) {
	ledger := newFixture(t).ledger
	verification := NewVerificationContract(failingPolicy{})

	err := verification.ReportCounterfeit(ledger.As(outsider),
		"PARA-500", models.AlertTypeTampered, "seal broken on sealed carton", "Thika road depot")
	require.NoError(t, err, "reporting must work even when every policy check would fail")

	// The same contract's gated operation does consult the policy
	_, err = verification.VerifyMedicine(ledger.As(outsider), "PARA-500", "", "")
	require.Error(t, err)
}

func TestReportCounterfeitValidation(t *testing.T) {
	f := newFixture(t)

	err := f.verification.ReportCounterfeit(f.ledger.As(outsider), "", models.AlertTypeTampered, "", "")
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))

	err = f.verification.ReportCounterfeit(f.ledger.As(outsider), "PARA-500", "", "", "")
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))
}

func TestCounterfeitAlertsOrdered(t *testing.T) {
	f := newFixture(t)

	reporters := []string{patient, outsider, "border-agent-77"}
	for _, reporter := range reporters {
		require.NoError(t, f.verification.ReportCounterfeit(f.ledger.As(reporter),
			"PARA-500", models.AlertTypeUnknownSource, "unverifiable wholesaler", "Busia border"))
	}

	alerts, err := f.verification.GetCounterfeitAlerts(f.ledger.As(outsider), "PARA-500")
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	for i, alert := range alerts {
		assert.Equal(t, i+1, alert.Seq)
		assert.Equal(t, reporters[i], alert.Reporter)
	}
}

func TestResolveAlert(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.verification.ReportCounterfeit(f.ledger.As(outsider),
		"PARA-500", models.AlertTypeFakePackaging, "holograms missing", "Nakuru"))

	err := f.verification.ResolveAlert(f.ledger.As(outsider), "PARA-500", 1, "confirmed counterfeit, seized")
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))

	err = f.verification.ResolveAlert(f.ledger.As(owner), "PARA-500", 1, "")
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))

	err = f.verification.ResolveAlert(f.ledger.As(owner), "PARA-500", 9, "no such alert")
	assert.Equal(t, ledgererr.CodeAlertNotFound, ledgererr.CodeOf(err))

	require.NoError(t, f.verification.ResolveAlert(f.ledger.As(owner), "PARA-500", 1, "confirmed counterfeit, batch seized"))

	alerts, err := f.verification.GetCounterfeitAlerts(f.ledger.As(outsider), "PARA-500")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Investigated)
	assert.Equal(t, "confirmed counterfeit, batch seized", alerts[0].Resolution)
	assert.Equal(t, owner, alerts[0].ResolvedBy)

	err = f.verification.ResolveAlert(f.ledger.As(owner), "PARA-500", 1, "closing again")
	assert.Equal(t, ledgererr.CodeAlertResolved, ledgererr.CodeOf(err))

	payload := eventPayload(t, f.ledger.LastEvent())
	assert.Equal(t, "ALERT_RESOLVED", payload["eventType"])
}

func TestVerificationStats(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	f.authorizeVerifier(t, verifier)

	stats, err := f.verification.GetVerificationStats(f.ledger.As(outsider))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalVerifications)
	assert.Equal(t, 0, stats.TotalAlerts)

	registerParacetamol(t, f)
	_, err = f.verification.VerifyMedicine(f.ledger.As(verifier), "PARA-500", "depot", "")
	require.NoError(t, err)
	_, err = f.verification.VerifyMedicine(f.ledger.As(verifier), "GHOST-1", "market", "")
	require.NoError(t, err)
	require.NoError(t, f.verification.ReportCounterfeit(f.ledger.As(patient),
		"PARA-500", models.AlertTypeExpiredResale, "repackaged expired stock", "Gikomba"))

	stats, err = f.verification.GetVerificationStats(f.ledger.As(outsider))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalVerifications, "the counter spans all medicines")
	assert.Equal(t, 1, stats.TotalAlerts)
}

func TestStoreWithStubPolicy(t *testing.T) {
	// Contracts take their authorization decisions from the injected
	// policy, so a stub policy can stand in for ledger-backed roles
	ledger := newFixture(t).ledger
	records := NewMedicalRecordContract(&stubPolicy{
		owner:     owner,
		providers: map[string]bool{provider: true},
	})

	require.NoError(t, records.StoreRecord(ledger.As(provider), testHash(50), patient, models.RecordTypeLabResult))

	err := records.StoreRecord(ledger.As(provider2), testHash(51), patient, models.RecordTypeLabResult)
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))
}
