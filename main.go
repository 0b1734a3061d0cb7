package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/api"
	"github.com/fatoora-dev/go-zatca-client/zatca/auth"
	"github.com/fatoora-dev/go-zatca-client/zatca/certs"
	"github.com/fatoora-dev/go-zatca-client/zatca/model"
	"github.com/fatoora-dev/go-zatca-client/zatca/pipeline"
	"github.com/fatoora-dev/go-zatca-client/zatca/qr"
	"github.com/fatoora-dev/go-zatca-client/zatca/util"
	"github.com/fatoora-dev/go-zatca-client/zatca/xmldsig"
)

func main() {

	if util.DebugEnabled() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	clientID := util.GetEnvOrFailed("ZATCA_CLIENT_ID")
	clientSecret := util.GetEnvOrFailed("ZATCA_CLIENT_SECRET")
	assetDir := util.GetEnvOrDefault("ZATCA_ASSET_DIR", "./data/assets")
	tenant := util.GetEnvOrFailed("ZATCA_TENANT")

	env := zatca.Sandbox

	sessions := auth.NewSessionManager(env, clientID, clientSecret)
	client := api.NewClient(env, sessions)

	canon, err := xmldsig.NewCanonicalizer()
	if err != nil {
		logrus.Fatalf("canonicalizer unavailable: %v", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		env,
		certs.NewFileStore(assetDir),
		pipeline.NewSignPool(xmldsig.NewSigner(canon), 4),
		api.NewClearanceService(client),
		api.NewReportingService(client),
	)

	inv := &model.Invoice{
		UUID:      uuid.NewString(),
		Number:    "INV-0001",
		TenantID:  tenant,
		Type:      model.TypeStandard,
		IssueDate: time.Now(),
		Seller: model.Party{
			Name:      "Demo Trading Co",
			VATNumber: "310122393500003",
			Street:    "King Fahd Rd",
			City:      "Riyadh",
			Country:   "SA",
		},
		Buyer: model.Party{
			Name:    "Customer LLC",
			City:    "Jeddah",
			Country: "SA",
		},
		Lines: []model.Line{
			{
				Name:        "Consulting",
				Quantity:    decimal.NewFromInt(4),
				UnitPrice:   decimal.RequireFromString("25.00"),
				TaxCategory: model.TaxStandard,
				TaxPercent:  model.StandardRate,
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result := orchestrator.Submit(ctx, inv)
	if result.Err != nil {
		logrus.Fatalf("submission %s: %v", result.Status, result.Err)
	}

	fmt.Println("status:", result.Status)
	fmt.Println("authority uuid:", result.AuthorityUUID)
	fmt.Println("invoice hash:", result.InvoiceHash)

	payload, err := qr.Payload(inv)
	if err != nil {
		logrus.Fatalf("qr payload: %v", err)
	}
	fmt.Println("qr:", payload)
}
