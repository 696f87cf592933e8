package constant

const (
	ProductionEnvironment  = "production"
	DevelopmentEnvironment = "development"
)

// Telegram bot commands routed by the dispatcher.
const (
	CommandStart    = "start"
	CommandHelp     = "help"
	CommandPrice    = "price"
	CommandMarket   = "market"
	CommandTrending = "trending"
	CommandFear     = "fear"
	CommandNews     = "news"
	CommandWhale    = "whale"
	CommandClear    = "clear"
)

// Inline keyboard callback payloads. Refresh carries the asset ids it was
// rendered for appended after the prefix, comma separated.
const (
	CallbackMarket             = "market"
	CallbackTrending           = "trending"
	CallbackFearGreed          = "feargreed"
	CallbackNews               = "news"
	CallbackWhale              = "whale"
	CallbackHelp               = "help"
	CallbackRefreshPricePrefix = "refresh_price_"
)
