package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Smoke check against a running relay instance. Point BASE_URL at the
// deployment and set API_KEY when the instance has auth enabled.
func main() {
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:8000"
	}
	apiKey := os.Getenv("API_KEY")

	fmt.Println("🔍 Starting Service Health Check...")
	fmt.Println("----------------------------------------")

	client := resty.New().SetBaseURL(base).SetTimeout(15 * time.Second)

	checkEndpoint(client, "Root", "/", "")
	checkEndpoint(client, "Health", "/health", "")
	checkEndpoint(client, "Messages (24h)", "/api/messages/24", apiKey)
	checkEndpoint(client, "Combined (24h)", "/api/messages/24/combined", apiKey)

	fmt.Println("----------------------------------------")
	fmt.Println("✅ Health Check Completed.")
}

func checkEndpoint(client *resty.Client, name, path, apiKey string) {
	start := time.Now()
	req := client.R()
	if apiKey != "" {
		req.SetHeader("x-api-key", apiKey)
	}
	resp, err := req.Get(path)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("❌ FAIL: %-20s (%s) - Error: %v\n", name, path, err)
		return
	}
	switch {
	case resp.StatusCode() == 503:
		fmt.Printf("⚠️ WARN: %-20s (%s) - Service not ready (503) (took %v)\n", name, path, duration)
	case resp.IsError():
		fmt.Printf("❌ FAIL: %-20s (%s) - HTTP %d\n", name, path, resp.StatusCode())
	default:
		fmt.Printf("✅ PASS: %-20s (%s) - HTTP %d (took %v)\n", name, path, resp.StatusCode(), duration)
	}
}
