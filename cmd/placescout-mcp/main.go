package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/placescout/models"
	"github.com/use-agent/placescout/sink"
)

func main() {
	apiURL := os.Getenv("PLACESCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	client := newClient(apiURL, os.Getenv("PLACESCOUT_API_KEY"))

	s := server.NewMCPServer(
		"placescout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_places",
		mcp.WithDescription("Search OpenStreetMap Nominatim for places matching a term within one country. Returns name, coordinates, address and type of each result."),
		mcp.WithString("country",
			mcp.Required(),
			mcp.Description("Country name (e.g. 'Canada') or ISO 3166 code (e.g. 'CA')"),
		),
		mcp.WithString("term",
			mcp.Description("Free-text search term (default: 'Workshop')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default and max: 50)"),
		),
	)
	s.AddTool(searchTool, handleSearchPlaces(client))

	healthTool := mcp.NewTool("service_health",
		mcp.WithDescription("Report whether the placescout service is up and whether a search is currently running."),
	)
	s.AddTool(healthTool, handleHealth(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// newClient returns a resty client for the placescout API. A search holds
// the browser for up to several navigation attempts, hence the long timeout.
func newClient(apiURL, apiKey string) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		c.SetHeader("X-API-Key", apiKey)
	}
	return c
}

func handleSearchPlaces(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		country, err := request.RequireString("country")
		if err != nil {
			return mcp.NewToolResultError("country is required"), nil
		}

		payload := models.SearchRequest{
			Term:    request.GetString("term", ""),
			Country: country,
			Limit:   request.GetInt("limit", 0),
		}

		var resp models.SearchResponse
		_, err = client.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&resp).
			SetError(&resp).
			Post("/api/v1/search")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "search failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatSearch(resp)), nil
	}
}

func formatSearch(resp models.SearchResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\nResults: %d\n\n", resp.Query.String(), resp.Count)
	if resp.Count == 0 {
		b.WriteString("No places found.")
		return b.String()
	}
	sink.RenderTable(&b, resp.Records)
	return b.String()
}

func handleHealth(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var health models.HealthResponse
		_, err := client.R().
			SetContext(ctx).
			SetResult(&health).
			Get("/api/v1/health")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nUptime: %s\nRuns: %d\nVersion: %s",
			health.Status, health.Uptime, health.Runs, health.Version)), nil
	}
}
