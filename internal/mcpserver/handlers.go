package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *BotdeskClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *BotdeskClient) *Handlers {
	return &Handlers{client: client}
}

// Wire shapes of the session API, decoded only as far as formatting needs.
type botView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WelcomeMessage string `json:"welcomeMessage"`
	Tone           string `json:"tone"`
	IsActive       bool   `json:"isActive"`
}

type tierView struct {
	Plan                string `json:"plan"`
	URLPagesUsed        int    `json:"urlPagesUsed"`
	MonthlyMessagesUsed int    `json:"monthlyMessagesUsed"`
	BotsCreated         int    `json:"botsCreated"`
}

type sessionView struct {
	BotConfig *botView  `json:"botConfig"`
	AllBots   []botView `json:"allBots"`
	UserTier  tierView  `json:"userTier"`
}

type usageView struct {
	Plan      string `json:"plan"`
	Resources map[string]struct {
		Used      int  `json:"used"`
		Limit     *int `json:"limit"`
		Remaining *int `json:"remaining"`
		Unbounded bool `json:"unbounded"`
	} `json:"resources"`
}

// HandleGetSession shows the full session.
func (h *Handlers) HandleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetSession(ctx)
	if err != nil {
		return toolError("Failed to load session", err), nil
	}
	var s sessionView
	if err := json.Unmarshal(raw, &s); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse session: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan: %s\n", s.UserTier.Plan)
	if s.BotConfig != nil {
		fmt.Fprintf(&sb, "Active bot: %s (%s)\n", s.BotConfig.Name, s.BotConfig.ID)
	} else {
		sb.WriteString("Active bot: none\n")
	}
	fmt.Fprintf(&sb, "Bots created: %d\n", s.UserTier.BotsCreated)
	fmt.Fprintf(&sb, "Messages this month: %d\n", s.UserTier.MonthlyMessagesUsed)
	fmt.Fprintf(&sb, "Pages trained: %d\n\n", s.UserTier.URLPagesUsed)
	sb.WriteString(formatBots(s.AllBots))
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleListBots lists the caller's bots.
func (h *Handlers) HandleListBots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListBots(ctx)
	if err != nil {
		return toolError("Failed to list bots", err), nil
	}
	var resp struct {
		Bots []botView `json:"bots"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse bots: %v", err)), nil
	}
	return mcp.NewToolResultText(formatBots(resp.Bots)), nil
}

// HandleCreateBot creates and activates a bot.
func (h *Handlers) HandleCreateBot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	raw, err := h.client.CreateBot(ctx, name, req.GetString("welcome_message", ""), req.GetString("tone", ""))
	if err != nil {
		return toolError("Failed to create bot", err), nil
	}
	var resp struct {
		Bot      botView  `json:"bot"`
		UserTier tierView `json:"userTier"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse bot: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Created bot %q (ID: %s). It is now the active bot.\nBots created on plan %s: %d",
		resp.Bot.Name, resp.Bot.ID, resp.UserTier.Plan, resp.UserTier.BotsCreated)), nil
}

// HandleSwitchBot activates another bot.
func (h *Handlers) HandleSwitchBot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	botID := req.GetString("bot_id", "")
	if botID == "" {
		return mcp.NewToolResultError("bot_id is required"), nil
	}
	raw, err := h.client.SwitchBot(ctx, botID)
	if err != nil {
		return toolError("Failed to switch bot", err), nil
	}
	bot, err := decodeBot(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse bot: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Active bot is now %q (%s).", bot.Name, bot.ID)), nil
}

// HandleUpdateBot patches a bot.
func (h *Handlers) HandleUpdateBot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	welcome := req.GetString("welcome_message", "")
	tone := req.GetString("tone", "")
	if name == "" && welcome == "" && tone == "" {
		return mcp.NewToolResultError("provide at least one of name, welcome_message, tone"), nil
	}

	raw, err := h.client.UpdateBot(ctx, req.GetString("bot_id", ""), name, welcome, tone)
	if err != nil {
		return toolError("Failed to update bot", err), nil
	}
	bot, err := decodeBot(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse bot: %v", err)), nil
	}
	return mcp.NewToolResultText("Updated bot:\n" + formatBot(bot)), nil
}

// HandleDeleteBot removes a bot.
func (h *Handlers) HandleDeleteBot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	botID := req.GetString("bot_id", "")
	if botID == "" {
		return mcp.NewToolResultError("bot_id is required"), nil
	}
	raw, err := h.client.DeleteBot(ctx, botID)
	if err != nil {
		return toolError("Failed to delete bot", err), nil
	}
	var resp struct {
		Deleted   botView  `json:"deleted"`
		BotConfig *botView `json:"botConfig"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Deleted bot %q (%s).\n", resp.Deleted.Name, resp.Deleted.ID)
	if resp.BotConfig != nil {
		fmt.Fprintf(&sb, "Active bot: %s (%s)\n", resp.BotConfig.Name, resp.BotConfig.ID)
	}
	sb.WriteString("Note: deleting a bot does not free a bot slot on your plan.")
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleSendMessage chats with the active bot.
func (h *Handlers) HandleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	raw, err := h.client.SendMessage(ctx, text)
	if err != nil {
		return toolError("Message not sent", err), nil
	}
	var resp struct {
		Reply struct {
			BotName string `json:"botName"`
			Content string `json:"content"`
		} `json:"reply"`
		UserTier tierView `json:"userTier"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse reply: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s\n\n(messages this month: %d)",
		resp.Reply.BotName, resp.Reply.Content, resp.UserTier.MonthlyMessagesUsed)), nil
}

// HandleAddPages records trained pages.
func (h *Handlers) HandleAddPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", -1)
	if count < 0 {
		return mcp.NewToolResultError("count must be a non-negative number"), nil
	}
	raw, err := h.client.AddPages(ctx, count)
	if err != nil {
		return toolError("Pages not recorded", err), nil
	}
	var resp struct {
		UserTier tierView `json:"userTier"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Recorded %d pages. Total trained: %d",
		count, resp.UserTier.URLPagesUsed)), nil
}

// HandleGetUsage shows plan usage.
func (h *Handlers) HandleGetUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetUsage(ctx)
	if err != nil {
		return toolError("Failed to load usage", err), nil
	}
	text, err := formatUsage(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse usage: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// toolError renders API failures. Quota denials get the used/limit detail
// so the model can explain the upgrade path.
func toolError(prefix string, err error) *mcp.CallToolResult {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "quota_exceeded" {
		msg := fmt.Sprintf("%s: plan limit reached for %s", prefix, apiErr.Resource)
		if apiErr.Used != nil && apiErr.Limit != nil {
			msg += fmt.Sprintf(" (%d of %d used)", *apiErr.Used, *apiErr.Limit)
		}
		return mcp.NewToolResultError(msg + ". Upgrade to premium for higher limits.")
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

func decodeBot(raw json.RawMessage) (botView, error) {
	var resp struct {
		Bot *botView `json:"bot"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return botView{}, err
	}
	if resp.Bot == nil {
		return botView{}, fmt.Errorf("no bot in response: %s", string(raw))
	}
	return *resp.Bot, nil
}

func formatBot(b botView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  ID: %s\n  Name: %s\n  Tone: %s\n", b.ID, b.Name, b.Tone)
	if b.WelcomeMessage != "" {
		fmt.Fprintf(&sb, "  Welcome: %s\n", b.WelcomeMessage)
	}
	return sb.String()
}

func formatBots(bots []botView) string {
	if len(bots) == 0 {
		return "No bots."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bots (%d):\n", len(bots))
	for i, b := range bots {
		marker := ""
		if b.IsActive {
			marker = " [active]"
		}
		fmt.Fprintf(&sb, "%d. %s (%s) tone=%s%s\n", i+1, b.Name, b.ID, b.Tone, marker)
	}
	return sb.String()
}

func formatUsage(raw json.RawMessage) (string, error) {
	var u usageView
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", err
	}

	names := make([]string, 0, len(u.Resources))
	for name := range u.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage on plan %s:\n", u.Plan)
	for _, name := range names {
		r := u.Resources[name]
		switch {
		case r.Unbounded:
			fmt.Fprintf(&sb, "  %-9s %d used (unlimited)\n", name+":", r.Used)
		case r.Limit != nil && r.Remaining != nil:
			fmt.Fprintf(&sb, "  %-9s %d of %d used, %d remaining\n", name+":", r.Used, *r.Limit, *r.Remaining)
		default:
			fmt.Fprintf(&sb, "  %-9s %d used\n", name+":", r.Used)
		}
	}
	return sb.String(), nil
}
