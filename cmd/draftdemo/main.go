// draftdemo runs the full mask/draft/unmask pipeline in-process against a
// sample intake and prints what the provider saw next to the final document.
// With PACTLY_OPENAI_API_KEY set it calls the live model, otherwise the
// deterministic stub.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"pactly.app/internal/draft"
	"pactly.app/internal/intake"
	"pactly.app/internal/pii"
	"pactly.app/internal/provider"
	"pactly.app/internal/stream"
)

func main() {
	log.SetFlags(0)
	var (
		jurisdiction = flag.String("jurisdiction", "CA", "Jurisdiction code")
		model        = flag.String("model", "gpt-4o-mini", "OpenAI model (when key is set)")
		timeout      = flag.Duration("timeout", 2*time.Minute, "Pipeline timeout")
	)
	flag.Parse()

	var client provider.Client
	if key := os.Getenv("PACTLY_OPENAI_API_KEY"); key != "" {
		log.Printf("Using live provider (model=%s)", *model)
		client = provider.NewOpenAI(key, provider.WithModel(*model), provider.WithTimeout(*timeout))
	} else {
		log.Println("PACTLY_OPENAI_API_KEY not set, using stub provider")
		client = &provider.Stub{}
	}

	rec := intake.Record{
		Email:        "couple@example.com",
		Jurisdiction: *jurisdiction,
		PartyAName:   "Jennifer Martinez",
		PartyBName:   "Michael Chen",
		WeddingDate:  "2026-09-12",
		Assets: []intake.Asset{
			{Category: intake.AssetRealEstate, Description: "Primary residence on Oak Street", Value: 850000, Owner: intake.OwnerPartyA},
			{Category: intake.AssetInvestment, Description: "Brokerage account", Value: 120000, Owner: intake.OwnerPartyB},
		},
		Debts: []intake.Debt{
			{Category: intake.DebtStudentLoan, Description: "Graduate school loans", Value: 45000, Owner: intake.OwnerPartyB},
		},
		SeparateProperty: true,
	}

	// Show the masking step on its own before the pipeline runs it again.
	masked, tokenMap, err := pii.Mask(rec)
	if err != nil {
		log.Fatalf("mask: %v", err)
	}
	maskedJSON, _ := json.MarshalIndent(masked, "", "  ")
	fmt.Println("--- What the provider sees ---")
	fmt.Println(string(maskedJSON))
	fmt.Printf("\n%d tokens across categories: %v\n\n", tokenMap.Len(), tokenMap.CategoryCounts())

	intakes := intake.NewInMemory()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	created, err := intakes.Create(ctx, rec)
	if err != nil {
		log.Fatalf("create intake: %v", err)
	}
	svc := draft.NewService(intakes, draft.NewInMemory(), client, stream.New(),
		draft.WithTimeout(*timeout))

	att, err := svc.Start(ctx, created.ID)
	if err != nil {
		log.Fatalf("start attempt: %v", err)
	}
	for {
		att, err = svc.GetAttempt(ctx, att.ID)
		if err != nil {
			log.Fatalf("get attempt: %v", err)
		}
		if att.State.Terminal() {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if att.State == draft.StateFailed {
		log.Fatalf("attempt failed: %s", att.Error)
	}

	doc, err := svc.Document(ctx, att.ID)
	if err != nil {
		log.Fatalf("document: %v", err)
	}
	fmt.Println("--- Final document ---")
	fmt.Println(doc.Text)
	fmt.Printf("\nSubstitutions: %d resolved, %d unresolved", doc.Report.Resolved, doc.Report.Unresolved)
	if len(doc.Report.UnresolvedTokens) > 0 {
		fmt.Printf(" (%v)", doc.Report.UnresolvedTokens)
	}
	fmt.Println()
}
