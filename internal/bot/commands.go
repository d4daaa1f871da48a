package bot

// Command constants for the builder bot.
const (
	CommandStart  = "/start"
	CommandNewBot = "/newbot"
	CommandMyBots = "/mybots"
	CommandCancel = "/cancel"
	CommandHelp   = "/help"
	CommandAdmin  = "/admin"
)

// Callback prefix constants for inline button interactions. Prefixes are
// matched with HasPrefix in random order, so none may be a prefix of another.
const (
	CallbackBotManage     = "bot_manage_"
	CallbackBotStats      = "bot_stats_"
	CallbackBotToggle     = "bot_toggle_"
	CallbackBotChannels   = "bot_channels_"
	CallbackBotExport     = "bot_export_"
	CallbackBotBroadcast  = "bot_broadcast_"
	CallbackBotRestart    = "bot_restart_"
	CallbackBotDeleteAsk  = "bot_delete_ask_"
	CallbackBotDeleteYes  = "bot_delete_yes_"
	CallbackBotContests   = "bot_contests_"
	CallbackChannelAdd    = "channel_add_"
	CallbackChannelRemove = "channel_remove_"
	CallbackContestNew    = "contest_new_"
	CallbackContestEnd    = "contest_end_"
	CallbackContestWin    = "contest_win_"
	CallbackBroadcastSend = "broadcast_send_"
	CallbackBroadcastStop = "broadcast_cancel"
	CallbackBotsList      = "bots_list"
	CallbackBotSettings   = "bot_settings_"
	CallbackBotAdmins     = "bot_admins_"
	CallbackBotRename     = "bot_rename_"
	CallbackSettingToggle = "setting_toggle_"
	CallbackSettingEdit   = "setting_edit_"
	CallbackAdminAdd      = "admin_add_"
	CallbackAdminRemove   = "admin_remove_"
)
