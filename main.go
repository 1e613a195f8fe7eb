package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/contracts"
	"github.com/afyachain/medledger/policy"
)

func main() {
	ledgerPolicy := policy.NewLedgerPolicy()

	chaincode, err := contractapi.NewChaincode(
		contracts.NewAccessControlContract(ledgerPolicy),
		contracts.NewConsentContract(ledgerPolicy),
		contracts.NewMedicalRecordContract(ledgerPolicy),
		contracts.NewMedicineContract(ledgerPolicy),
		contracts.NewVerificationContract(ledgerPolicy),
	)
	if err != nil {
		log.Panicf("Error creating medledger chaincode: %v", err)
	}

	if err := chaincode.Start(); err != nil {
		log.Panicf("Error starting medledger chaincode: %v", err)
	}
}
