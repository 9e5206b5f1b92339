package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Pretty print JSON helper
func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(client *http.Client, method, url, clientIP string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

type step struct {
	title  string
	method string
	path   string
	body   interface{}
	want   int
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "server base URL")
	burst := flag.Bool("burst", false, "also exhaust the rate limit for one client")
	flag.Parse()

	client := &http.Client{Timeout: 60 * time.Second}
	color.Cyan("Portfolio chat API smoke test against %s\n", *baseURL)

	steps := []step{
		{"Health", http.MethodGet, "/health", nil, http.StatusOK},
		{"GET is rejected", http.MethodGet, "/api/chat", nil, http.StatusMethodNotAllowed},
		{"Default mode", http.MethodPost, "/api/chat", map[string]interface{}{
			"messages": []map[string]string{{"role": "user", "content": "What do you build?"}},
		}, http.StatusOK},
		{"Recruiter mode with job description", http.MethodPost, "/api/chat", map[string]interface{}{
			"messages":       []map[string]string{{"role": "user", "content": "Are you a fit for this role?"}},
			"mode":           "Recruiter",
			"jobDescription": "Senior Go engineer. Distributed systems, Postgres, Kubernetes.",
		}, http.StatusOK},
		{"One-liner mode", http.MethodPost, "/api/chat", map[string]interface{}{
			"messages": []map[string]string{{"role": "user", "content": "Sum yourself up."}},
			"mode":     "One-liner",
		}, http.StatusOK},
	}

	failed := 0
	for i, s := range steps {
		color.Yellow("\n%d. %s (%s %s)", i+1, s.title, s.method, s.path)
		resp, body, err := sendRequest(client, s.method, *baseURL+s.path, "", s.body)
		if err != nil {
			color.Red("Failed: %v", err)
			failed++
			continue
		}
		if resp.StatusCode != s.want {
			color.Red("Status: %s (want %d)", resp.Status, s.want)
			failed++
		} else {
			color.Green("Status: %s  X-Request-Id: %s", resp.Status, resp.Header.Get("X-Request-Id"))
		}
		prettyPrint(body)
	}

	if *burst {
		color.Yellow("\nRate limit burst from 198.51.100.77")
		limited := false
		for i := 1; i <= 25; i++ {
			resp, _, err := sendRequest(client, http.MethodPost, *baseURL+"/api/chat", "198.51.100.77", map[string]interface{}{"messages": "skip"})
			if err != nil {
				color.Red("Failed: %v", err)
				failed++
				break
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				color.Green("Limited on request %d", i)
				limited = true
				break
			}
		}
		if !limited {
			color.Red("Rate limit never triggered")
			failed++
		}
	}

	if failed > 0 {
		color.Red("\n%d step(s) failed", failed)
		os.Exit(1)
	}
	color.Green("\nAll steps passed")
}
