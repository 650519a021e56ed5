package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the botdesk MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription(
		"Show the current dashboard session: the active bot, all bots, the plan, and usage counters."),
)

var ToolListBots = mcp.NewTool("list_bots",
	mcp.WithDescription(
		"List every chatbot you own with its ID, tone, and which one is active."),
)

var ToolCreateBot = mcp.NewTool("create_bot",
	mcp.WithDescription(
		"Create a new chatbot and make it the active bot. "+
			"Fails with quota_exceeded when the plan's bot limit is reached. "+
			"Deleting a bot does not give the slot back."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Display name for the bot (max 100 characters)")),
	mcp.WithString("welcome_message",
		mcp.Description("Greeting shown when a conversation starts")),
	mcp.WithString("tone",
		mcp.Description("Reply style"),
		mcp.Enum("friendly", "formal", "neutral")),
)

var ToolSwitchBot = mcp.NewTool("switch_bot",
	mcp.WithDescription("Make another of your bots the active one."),
	mcp.WithString("bot_id",
		mcp.Required(),
		mcp.Description("ID of the bot to activate, as shown by list_bots")),
)

var ToolUpdateBot = mcp.NewTool("update_bot",
	mcp.WithDescription(
		"Change a bot's name, welcome message, or tone. Omitted fields keep their current value. "+
			"Without bot_id the active bot is updated."),
	mcp.WithString("bot_id",
		mcp.Description("ID of the bot to update (defaults to the active bot)")),
	mcp.WithString("name",
		mcp.Description("New display name")),
	mcp.WithString("welcome_message",
		mcp.Description("New greeting")),
	mcp.WithString("tone",
		mcp.Description("New reply style"),
		mcp.Enum("friendly", "formal", "neutral")),
)

var ToolDeleteBot = mcp.NewTool("delete_bot",
	mcp.WithDescription(
		"Delete one of your bots. The last remaining bot cannot be deleted. "+
			"If the active bot is deleted, the oldest remaining bot becomes active."),
	mcp.WithString("bot_id",
		mcp.Required(),
		mcp.Description("ID of the bot to delete")),
)

var ToolSendMessage = mcp.NewTool("send_message",
	mcp.WithDescription(
		"Send a chat message to the active bot and get its reply. "+
			"Counts against the plan's monthly message limit."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Message text (max 4000 characters)")),
)

var ToolAddPages = mcp.NewTool("add_pages",
	mcp.WithDescription(
		"Record newly trained website pages. Counts against the plan's trained page limit; "+
			"a batch that would exceed it is rejected as a whole."),
	mcp.WithNumber("count",
		mcp.Required(),
		mcp.Description("Number of pages trained")),
)

var ToolGetUsage = mcp.NewTool("get_usage",
	mcp.WithDescription(
		"Show how much of each plan limit (bots, monthly messages, trained pages) has been used."),
)
