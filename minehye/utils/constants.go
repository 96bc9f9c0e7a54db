package utils

// Embed colors.
const (
	SuccessColor = 0x57F287
	ErrorColor   = 0xED4245
	WarningColor = 0xFEE75C
	InfoColor    = 0x5865F2
	NeutralColor = 0x2B2D31
)

// HeroesPerPage is the roster page size for paginated listings.
const HeroesPerPage = 8
