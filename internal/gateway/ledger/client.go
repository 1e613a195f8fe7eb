package ledger

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/afyachain/medledger/internal/gateway/config"
	"github.com/afyachain/medledger/models"
)

const (
	accessContract       = "AccessControlContract"
	consentContract      = "ConsentContract"
	recordContract       = "MedicalRecordContract"
	medicineContract     = "MedicineContract"
	verificationContract = "VerificationContract"
)

// Client talks to the chaincode through a gateway peer. All
// transactions carry the gateway's enrolled identity; the chaincode's
// authorization policy applies to that identity.
type Client struct {
	conn    *grpc.ClientConn
	gateway *client.Gateway

	access       *client.Contract
	consent      *client.Contract
	records      *client.Contract
	medicine     *client.Contract
	verification *client.Contract
}

var _ Ledger = (*Client)(nil)

// Connect dials the gateway peer and binds the chaincode's contracts.
func Connect(cfg *config.Config) (*Client, error) {
	conn, err := newGrpcConnection(cfg)
	if err != nil {
		return nil, err
	}

	id, err := newIdentity(cfg.CertPath, cfg.MSPID)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sign, err := newSign(cfg.KeyPath)
	if err != nil {
		conn.Close()
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(5*time.Second),
		client.WithEndorseTimeout(15*time.Second),
		client.WithSubmitTimeout(5*time.Second),
		client.WithCommitStatusTimeout(1*time.Minute),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network := gw.GetNetwork(cfg.Channel)
	return &Client{
		conn:         conn,
		gateway:      gw,
		access:       network.GetContractWithName(cfg.Chaincode, accessContract),
		consent:      network.GetContractWithName(cfg.Chaincode, consentContract),
		records:      network.GetContractWithName(cfg.Chaincode, recordContract),
		medicine:     network.GetContractWithName(cfg.Chaincode, medicineContract),
		verification: network.GetContractWithName(cfg.Chaincode, verificationContract),
	}, nil
}

func newGrpcConnection(cfg *config.Config) (*grpc.ClientConn, error) {
	pem, err := os.ReadFile(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read peer TLS certificate: %w", err)
	}
	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCertPath)
	}
	creds := credentials.NewClientTLSFromCert(certPool, cfg.GatewayPeer)

	conn, err := grpc.Dial(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.PeerEndpoint, err)
	}
	return conn, nil
}

func newIdentity(certPath, mspID string) (*identity.X509Identity, error) {
	pem, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client certificate: %w", err)
	}
	certificate, err := identity.CertificateFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client certificate: %w", err)
	}
	return identity.NewX509Identity(mspID, certificate)
}

func newSign(keyPath string) (identity.Sign, error) {
	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client key: %w", err)
	}
	privateKey, err := identity.PrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client key: %w", err)
	}
	return identity.NewPrivateKeySign(privateKey)
}

func (c *Client) Close() error {
	c.gateway.Close()
	return c.conn.Close()
}

func submit(ctx context.Context, contract *client.Contract, name string, args ...string) ([]byte, error) {
	return contract.SubmitWithContext(ctx, name, client.WithArguments(args...))
}

func evaluate(ctx context.Context, contract *client.Contract, name string, args ...string) ([]byte, error) {
	return contract.EvaluateWithContext(ctx, name, client.WithArguments(args...))
}

func parseBool(result []byte) bool {
	return string(result) == "true"
}

func parseJSON(result []byte, out interface{}) error {
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("failed to parse chaincode response: %v", err)
	}
	return nil
}

// Owner doubles as the connectivity probe: it is the cheapest
// evaluation the chaincode offers.
func (c *Client) Owner(ctx context.Context) (string, error) {
	result, err := evaluate(ctx, c.access, "GetOwner")
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func (c *Client) StoreRecord(ctx context.Context, recordHash, patient, recordType string) error {
	_, err := submit(ctx, c.records, "StoreRecord", recordHash, patient, recordType)
	return err
}

// Record is submitted rather than evaluated so the access audit event
// commits with the read.
func (c *Client) Record(ctx context.Context, recordHash string) (*models.MedicalRecord, error) {
	result, err := submit(ctx, c.records, "GetRecord", recordHash)
	if err != nil {
		return nil, err
	}
	record := &models.MedicalRecord{}
	if err := parseJSON(result, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) VerifyRecord(ctx context.Context, recordHash string) (bool, error) {
	result, err := evaluate(ctx, c.records, "VerifyRecord", recordHash)
	if err != nil {
		return false, err
	}
	return parseBool(result), nil
}

func (c *Client) EmergencyAccess(ctx context.Context, recordHash, reason string) (*models.MedicalRecord, error) {
	result, err := submit(ctx, c.records, "EmergencyAccess", recordHash, reason)
	if err != nil {
		return nil, err
	}
	record := &models.MedicalRecord{}
	if err := parseJSON(result, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) PatientRecords(ctx context.Context, patient string) ([]string, error) {
	result, err := submit(ctx, c.records, "GetPatientRecords", patient)
	if err != nil {
		return nil, err
	}
	hashes := []string{}
	if err := parseJSON(result, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (c *Client) EmergencyAccessLog(ctx context.Context, recordHash string) ([]*models.EmergencyAccessEntry, error) {
	result, err := evaluate(ctx, c.records, "GetEmergencyAccessLog", recordHash)
	if err != nil {
		return nil, err
	}
	entries := []*models.EmergencyAccessEntry{}
	if err := parseJSON(result, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GrantConsent(ctx context.Context, provider string) error {
	_, err := submit(ctx, c.consent, "GrantConsent", provider)
	return err
}

func (c *Client) RevokeConsent(ctx context.Context, provider string) error {
	_, err := submit(ctx, c.consent, "RevokeConsent", provider)
	return err
}

func (c *Client) HasConsent(ctx context.Context, patient, provider string) (bool, error) {
	result, err := evaluate(ctx, c.consent, "HasConsent", patient, provider)
	if err != nil {
		return false, err
	}
	return parseBool(result), nil
}

func (c *Client) RegisterMedicine(ctx context.Context, params RegisterMedicineParams) error {
	indicationsJSON := ""
	if len(params.Indications) > 0 {
		encoded, err := json.Marshal(params.Indications)
		if err != nil {
			return fmt.Errorf("failed to encode indications: %v", err)
		}
		indicationsJSON = string(encoded)
	}
	_, err := submit(ctx, c.medicine, "RegisterMedicine",
		params.MedicineID,
		params.Name,
		params.ActiveIngredient,
		params.ManufactureDate,
		params.ExpiryDate,
		params.BatchNumber,
		params.Dosage,
		params.DosageUnit,
		indicationsJSON,
	)
	return err
}

func (c *Client) Medicine(ctx context.Context, medicineID string) (*models.Medicine, error) {
	result, err := evaluate(ctx, c.medicine, "GetMedicine", medicineID)
	if err != nil {
		return nil, err
	}
	medicine := &models.Medicine{}
	if err := parseJSON(result, medicine); err != nil {
		return nil, err
	}
	return medicine, nil
}

func (c *Client) DeactivateMedicine(ctx context.Context, medicineID string) error {
	_, err := submit(ctx, c.medicine, "DeactivateMedicine", medicineID)
	return err
}

func (c *Client) CreateBatch(ctx context.Context, batchID, medicineID string, quantity int) error {
	_, err := submit(ctx, c.medicine, "CreateBatch", batchID, medicineID, strconv.Itoa(quantity))
	return err
}

func (c *Client) Batch(ctx context.Context, batchID string) (*models.Batch, error) {
	result, err := evaluate(ctx, c.medicine, "GetBatch", batchID)
	if err != nil {
		return nil, err
	}
	batch := &models.Batch{}
	if err := parseJSON(result, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (c *Client) DistributeBatch(ctx context.Context, batchID, recipient string, quantity int) error {
	_, err := submit(ctx, c.medicine, "DistributeBatch", batchID, recipient, strconv.Itoa(quantity))
	return err
}

func (c *Client) TransferBatchCustody(ctx context.Context, batchID, newHolder string) error {
	_, err := submit(ctx, c.medicine, "TransferBatchCustody", batchID, newHolder)
	return err
}

func (c *Client) RecallBatch(ctx context.Context, batchID, reason string) error {
	_, err := submit(ctx, c.medicine, "RecallBatch", batchID, reason)
	return err
}

func (c *Client) BatchHistory(ctx context.Context, batchID string) ([]*models.HistoryRecord, error) {
	result, err := evaluate(ctx, c.medicine, "GetBatchHistory", batchID)
	if err != nil {
		return nil, err
	}
	history := []*models.HistoryRecord{}
	if err := parseJSON(result, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) VerifyMedicine(ctx context.Context, medicineID, location, notes string) (bool, error) {
	result, err := submit(ctx, c.verification, "VerifyMedicine", medicineID, location, notes)
	if err != nil {
		return false, err
	}
	return parseBool(result), nil
}

func (c *Client) ReportCounterfeit(ctx context.Context, medicineID, alertType, description, location string) error {
	_, err := submit(ctx, c.verification, "ReportCounterfeit", medicineID, alertType, description, location)
	return err
}

func (c *Client) VerificationHistory(ctx context.Context, medicineID string) ([]*models.VerificationRecord, error) {
	result, err := evaluate(ctx, c.verification, "GetVerificationHistory", medicineID)
	if err != nil {
		return nil, err
	}
	entries := []*models.VerificationRecord{}
	if err := parseJSON(result, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) CounterfeitAlerts(ctx context.Context, medicineID string) ([]*models.CounterfeitAlert, error) {
	result, err := evaluate(ctx, c.verification, "GetCounterfeitAlerts", medicineID)
	if err != nil {
		return nil, err
	}
	alerts := []*models.CounterfeitAlert{}
	if err := parseJSON(result, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *Client) ResolveAlert(ctx context.Context, medicineID string, seq int, resolution string) error {
	_, err := submit(ctx, c.verification, "ResolveAlert", medicineID, strconv.Itoa(seq), resolution)
	return err
}

func (c *Client) VerificationStats(ctx context.Context) (*models.VerificationStats, error) {
	result, err := evaluate(ctx, c.verification, "GetVerificationStats")
	if err != nil {
		return nil, err
	}
	stats := &models.VerificationStats{}
	if err := parseJSON(result, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
