// Package main implements a standalone seed script that populates a running
// iTIP backend with realistic demo data: provider accounts with bank details
// and QR codes, customer accounts, and a spread of tips (both anonymous and
// attributed) so dashboards and transaction lists have something to show.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

const actionPath = "/api/v1/action"

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// callAction posts an action to the single API endpoint and returns the data
// portion of the success envelope.
func callAction(apiURL, token, action string, payload map[string]any) (map[string]any, error) {
	body := map[string]any{"action": action}
	for k, v := range payload {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, apiURL+actionPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: HTTP %d: %s", action, resp.StatusCode, string(respBody))
	}

	var envelope struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return envelope.Data, nil
}

type providerDef struct {
	firstName string
	lastName  string
	city      string
	labels    []string
}

var providers = []providerDef{
	{"Maria", "Santos", "Lisbon", []string{"Table service", "Bar"}},
	{"Jonas", "Weber", "Berlin", []string{"Haircut"}},
	{"Aylin", "Demir", "Istanbul", []string{"Delivery", "Counter"}},
	{"Pavel", "Novak", "Prague", []string{"Tour guide"}},
	{"Ines", "Moreau", "Paris", []string{"Valet", "Concierge", "Doorman"}},
}

var customers = []struct {
	firstName string
	lastName  string
}{
	{"Tom", "Riley"},
	{"Sara", "Lindgren"},
	{"Omar", "Haddad"},
}

var tipMessages = []string{
	"Great service, thank you!",
	"Keep up the good work",
	"",
	"Fast and friendly",
	"Best in town",
}

var suggestedAmountSets = [][]int64{
	{100, 200, 500},
	{200, 500, 1000},
	{500, 1000, 2000},
}

func main() {
	apiURL := getEnv("API_URL", "http://localhost:8080")
	runID := time.Now().UnixNano() % 1_000_000
	password := "Seed-password-1"

	log.Printf("seeding iTIP demo data against %s (run %d)", apiURL, runID)

	// Providers with bank details and QR codes.
	var slugs []string
	for i, p := range providers {
		email := fmt.Sprintf("provider-%d-%d@seed.itip.example.com", runID, i)
		data, err := callAction(apiURL, "", "providerRegister", map[string]any{
			"email":      email,
			"password":   password,
			"first_name": p.firstName,
			"last_name":  p.lastName,
			"city":       p.city,
		})
		if err != nil {
			log.Fatalf("register provider %s: %v", email, err)
		}
		token, _ := data["token"].(string)

		_, err = callAction(apiURL, token, "saveBankDetails", map[string]any{
			"bank_name": "Demo Bank",
			"holder":    p.firstName + " " + p.lastName,
			"iban":      fmt.Sprintf("DE89370400440532%06d%02d", runID, i),
			"currency":  "EUR",
		})
		if err != nil {
			log.Fatalf("save bank details for %s: %v", email, err)
		}

		for _, label := range p.labels {
			qr, err := callAction(apiURL, token, "createQrCode", map[string]any{
				"label":             label,
				"suggested_amounts": suggestedAmountSets[rand.Intn(len(suggestedAmountSets))],
				"currency":          "EUR",
			})
			if err != nil {
				log.Fatalf("create qr code %q for %s: %v", label, email, err)
			}
			if slug, ok := qr["slug"].(string); ok {
				slugs = append(slugs, slug)
			}
		}
		log.Printf("seeded provider %s with %d qr codes", email, len(p.labels))
	}

	// Customers.
	var customerTokens []string
	for i, c := range customers {
		email := fmt.Sprintf("customer-%d-%d@seed.itip.example.com", runID, i)
		data, err := callAction(apiURL, "", "customerRegister", map[string]any{
			"email":      email,
			"password":   password,
			"first_name": c.firstName,
			"last_name":  c.lastName,
		})
		if err != nil {
			log.Fatalf("register customer %s: %v", email, err)
		}
		if token, ok := data["token"].(string); ok {
			customerTokens = append(customerTokens, token)
		}
		log.Printf("seeded customer %s", email)
	}

	// Tips: a mix of anonymous and attributed payments across all codes.
	tipCount := 0
	for _, slug := range slugs {
		n := 2 + rand.Intn(4)
		for j := 0; j < n; j++ {
			token := ""
			if rand.Intn(2) == 0 && len(customerTokens) > 0 {
				token = customerTokens[rand.Intn(len(customerTokens))]
			}
			_, err := callAction(apiURL, token, "payTip", map[string]any{
				"slug":    slug,
				"amount":  int64(100 * (1 + rand.Intn(20))),
				"message": tipMessages[rand.Intn(len(tipMessages))],
			})
			if err != nil {
				log.Fatalf("pay tip on %s: %v", slug, err)
			}
			tipCount++
		}
	}

	log.Printf("done: %d providers, %d customers, %d qr codes, %d tips",
		len(providers), len(customers), len(slugs), tipCount)
}
