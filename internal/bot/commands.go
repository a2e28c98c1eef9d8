package bot

// Command constants for Telegram bot commands.
const (
	CommandStart  = "/start"
	CommandAdd    = "/add"
	CommandDelete = "/del"
	CommandAll    = "/all"
	CommandHelp   = "/help"
	CommandCancel = "/cancel"
)
