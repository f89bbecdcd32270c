package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type tools struct {
	backend Backend
}

func registerTools(s *server.MCPServer, b Backend) {
	t := &tools{backend: b}

	// check_stock
	checkTool := mcp.NewTool("check_stock",
		mcp.WithDescription("Classify the stock status of a matcha product page (in_stock, out_of_stock, pre_order, unknown)"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Product page URL"),
		),
		mcp.WithBoolean("render",
			mcp.Description("Render the page in a headless browser (default: false)"),
		),
	)
	s.AddTool(checkTool, t.handleCheckStock)

	// recent_restocks
	restocksTool := mcp.NewTool("recent_restocks",
		mcp.WithDescription("List products that came back in stock recently"),
		mcp.WithNumber("lookback_minutes",
			mcp.Description("Detection window in minutes (default: 60)"),
		),
	)
	s.AddTool(restocksTool, t.handleRecentRestocks)

	// list_brands
	brandsTool := mcp.NewTool("list_brands",
		mcp.WithDescription("List tracked brands with product and subscription counts"),
	)
	s.AddTool(brandsTool, t.handleListBrands)

	// brand_status
	statusTool := mcp.NewTool("brand_status",
		mcp.WithDescription("Latest recorded stock status of every product of a brand"),
		mcp.WithString("brand",
			mcp.Required(),
			mcp.Description("Brand name, e.g. \"Ippodo Tea\""),
		),
	)
	s.AddTool(statusTool, t.handleBrandStatus)
}

func (t *tools) handleCheckStock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	render := request.GetBool("render", false)

	res, err := t.backend.Check(ctx, url, render)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check error: %v", err)), nil
	}
	return jsonResult(res)
}

func (t *tools) handleRecentRestocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	minutes := request.GetInt("lookback_minutes", 60)
	if minutes <= 0 {
		return mcp.NewToolResultError("lookback_minutes must be positive"), nil
	}

	restocks, err := t.backend.Restocked(ctx, time.Duration(minutes)*time.Minute)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("restock error: %v", err)), nil
	}
	return jsonResult(restocks)
}

func (t *tools) handleListBrands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	brands, err := t.backend.BrandSummaries(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("brands error: %v", err)), nil
	}
	return jsonResult(brands)
}

func (t *tools) handleBrandStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	brand := request.GetString("brand", "")
	if brand == "" {
		return mcp.NewToolResultError("brand is required"), nil
	}

	statuses, err := t.backend.BrandStatus(ctx, brand)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status error: %v", err)), nil
	}
	return jsonResult(statuses)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
